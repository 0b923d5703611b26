package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/stenstromen/todogate/db"
	"github.com/stenstromen/todogate/model"
	"github.com/stenstromen/todogate/service"
	"github.com/stenstromen/todogate/session"
	"github.com/stenstromen/todogate/token"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Users      *service.Users
	Todos      *service.Todos
	Sessions   *session.Manager
	DB         Pinger
	Log        *logrus.Logger
	LoginRate  float64
	LoginBurst int
}

type handler struct {
	users    *service.Users
	todos    *service.Todos
	db       Pinger
	log      *logrus.Logger
	metrics  *metrics
	limiters *limiterRegistry
}

func Handlers(d Deps) *mux.Router {
	h := &handler{
		users:    d.Users,
		todos:    d.Todos,
		db:       d.DB,
		log:      d.Log,
		metrics:  newMetrics(),
		limiters: newLimiterRegistry(d.LoginRate, d.LoginBurst),
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(d.Sessions.Middleware, h.logRequests, h.instrument, h.recoverPanic)

	pages.HandleFunc("/", h.index).Methods(http.MethodGet)
	pages.HandleFunc("/error", h.errorPage).Methods(http.MethodGet)

	pages.HandleFunc("/register", h.registerPage).Methods(http.MethodGet)
	pages.Handle("/register", submit(h, to("/register"), h.register)).Methods(http.MethodPost)
	pages.HandleFunc("/login", h.loginPage).Methods(http.MethodGet)
	pages.Handle("/login", h.limitLogin(submit(h, to("/login"), h.login))).Methods(http.MethodPost)
	pages.HandleFunc("/login/otp", h.otpPage).Methods(http.MethodGet)
	pages.Handle("/login/otp", submit(h, to("/login/otp"), h.verifyOTP)).Methods(http.MethodPost)

	auth := pages.NewRoute().Subrouter()
	auth.Use(h.requireLogin)

	auth.Handle("/logout", submit(h, to("/todo"), h.logout)).Methods(http.MethodPost)
	auth.HandleFunc("/todo", h.todoList).Methods(http.MethodGet)
	auth.HandleFunc("/todo/entry", h.entryPage).Methods(http.MethodGet)
	auth.Handle("/todo/entry", submit(h, to("/todo/entry"), h.addItem)).Methods(http.MethodPost)
	auth.HandleFunc("/todo/edit", h.editPage).Methods(http.MethodGet)
	auth.Handle("/todo/edit", submit(h, editBack, h.updateItem)).Methods(http.MethodPost)
	auth.Handle("/todo/complete", submit(h, to("/todo"), h.completeItem)).Methods(http.MethodPost)
	auth.Handle("/todo/delete", submit(h, to("/todo"), h.deleteItem)).Methods(http.MethodPost)
	auth.HandleFunc("/account/cancel", h.cancelPage).Methods(http.MethodGet)
	auth.Handle("/account/cancel", submit(h, cancelBack, h.cancelAccount)).Methods(http.MethodPost)
	auth.HandleFunc("/account/totp", h.totpPage).Methods(http.MethodGet)
	auth.Handle("/account/totp", submit(h, to("/account/totp"), h.enableTOTP)).Methods(http.MethodPost)

	return r
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if _, ok := s.Login(); ok {
		http.Redirect(w, r, "/todo", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *handler) errorPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	pd := model.PageData{Title: "Error", Err: s.PopErr()}
	if l, ok := s.Login(); ok {
		pd.Login = &l
	}
	h.render(w, r, s, "error", pd)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("health check failed")
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// formPage pops the flash maps and issues a fresh form token.
func (h *handler) formPage(w http.ResponseWriter, r *http.Request, s *session.Session, title string) (model.PageData, bool) {
	pd := model.PageData{
		Title:   title,
		Err:     s.PopErr(),
		Success: s.PopSuccess(),
		Fill:    s.PopFill(),
	}
	if l, ok := s.Login(); ok {
		pd.Login = &l
	}
	t, err := token.Issue(s)
	if err != nil {
		h.fail(w, r, s, err)
		return pd, false
	}
	pd.Token = t
	return pd, true
}

func (h *handler) render(w http.ResponseWriter, r *http.Request, s *session.Session, name string, data any) {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		h.entry(r).WithError(err).Errorf("render %s", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := s.Save(w, r); err != nil {
		h.entry(r).WithError(err).Error("failed to save session")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// redirect saves the session and answers 303. When the session cannot be
// saved the flashes are dropped and the visitor goes to the error page, so a
// consumed form token is still stored.
func (h *handler) redirect(w http.ResponseWriter, r *http.Request, s *session.Session, to string) {
	if err := s.Save(w, r); err != nil {
		h.entry(r).WithError(err).WithField("at", service.CallSite(2)).Error("failed to save session")
		s.ClearErr()
		s.ClearFill()
		s.PopSuccess()
		s.SetErrMsg(model.MsgExceptionError)
		if err := s.Save(w, r); err != nil {
			h.entry(r).WithError(err).Error("failed to save session")
		}
		to = "/error"
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail logs an infrastructure fault and sends the visitor to the error page.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	h.failAt(w, r, s, err, service.CallSite(2))
}

// failAt is fail for a fault reported elsewhere, at is its file:line.
func (h *handler) failAt(w http.ResponseWriter, r *http.Request, s *session.Session, err error, at string) {
	h.entry(r).WithError(err).WithField("at", at).Error("request failed")
	msg := model.MsgExceptionError
	if errors.Is(err, db.ErrQuery) {
		msg = model.MsgDatabaseError
	}
	s.SetErrMsg(msg)
	h.redirect(w, r, s, "/error")
}

// outcome handles a non-OK result of a page load. A rejection is shown on
// back, a failure goes to the error page.
func (h *handler) outcome(w http.ResponseWriter, r *http.Request, s *session.Session, out service.Outcome, back string) {
	if out.Kind == service.KindFailed {
		h.failAt(w, r, s, out.Err, out.At)
		return
	}
	s.SetErrMsg(out.Reason)
	h.redirect(w, r, s, back)
}

func loginOf(u *model.User) model.Login {
	return model.Login{ID: u.ID, Email: u.Email, UserName: u.UserName}
}

// currentLogin is only called behind requireLogin.
func currentLogin(s *session.Session) model.Login {
	l, _ := s.Login()
	return l
}
