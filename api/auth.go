package api

import (
	"net/http"

	"github.com/stenstromen/todogate/model"
	"github.com/stenstromen/todogate/service"
	"github.com/stenstromen/todogate/session"
)

func (h *handler) registerPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	pd, ok := h.formPage(w, r, s, "Register")
	if !ok {
		return
	}
	h.render(w, r, s, "register", pd)
}

func (h *handler) register(r *http.Request, s *session.Session, f *model.SignupForm) result {
	if _, out := h.users.AddUser(r.Context(), *f); !out.OK() {
		return rejected(out)
	}
	s.ClearLogin()
	return done("/login", model.MsgNewRegistrationSuccess)
}

func (h *handler) loginPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	pd, ok := h.formPage(w, r, s, "Login")
	if !ok {
		return
	}
	h.render(w, r, s, "login", pd)
}

// login drops any previous identity before checking the credentials. A user
// with TOTP enabled continues to the code form instead of being signed in.
func (h *handler) login(r *http.Request, s *session.Session, f *model.LoginForm) result {
	s.ClearLogin()
	s.ClearPendingOTP()

	u, out := h.users.Login(r.Context(), *f)
	h.metrics.logins.WithLabelValues(out.Kind.String()).Inc()
	if !out.OK() {
		return rejected(out)
	}

	if u.TOTPEnabled() {
		s.SetPendingOTP(u.ID)
		return done("/login/otp", model.MsgOTPRequired)
	}
	s.SetLogin(loginOf(u))
	return done("/todo", model.MsgLoginSuccessful)
}

func (h *handler) otpPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if _, ok := s.PendingOTP(); !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	pd, ok := h.formPage(w, r, s, "Enter OTP")
	if !ok {
		return
	}
	h.render(w, r, s, "otp", pd)
}

func (h *handler) verifyOTP(r *http.Request, s *session.Session, f *model.OTPForm) result {
	id, ok := s.PendingOTP()
	if !ok {
		return result{out: service.Reject(model.MsgInvalidProcess), back: "/login"}
	}

	u, out := h.users.VerifyTOTP(r.Context(), id, *f)
	if !out.OK() {
		return rejected(out)
	}
	s.ClearPendingOTP()
	s.SetLogin(loginOf(u))
	return done("/todo", model.MsgLoginSuccessful)
}

func (h *handler) logout(r *http.Request, s *session.Session, f *model.LogoutForm) result {
	s.ClearLogin()
	s.ClearPendingOTP()
	s.ClearEnrolKey()
	return done("/login", model.MsgLogoutSuccessful)
}
