package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"
	"net/http"
	"strconv"

	"github.com/pquerna/otp"

	"github.com/stenstromen/todogate/model"
	"github.com/stenstromen/todogate/sanitize"
	"github.com/stenstromen/todogate/service"
	"github.com/stenstromen/todogate/session"
	"github.com/stenstromen/todogate/validate"
)

type cancelPage struct {
	model.PageData
	LoginID  int64
	UserName string
}

type totpPage struct {
	model.PageData
	QR      template.URL
	Secret  string
	Enabled bool
}

// cancelPage asks the signed-in user to confirm the account removal. The
// login_id parameter must name the signed-in user.
func (h *handler) cancelPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	l := currentLogin(s)

	var f model.CancelForm
	res := validate.Form(&f, sanitize.Values(r.URL.Query()))
	if !res.Valid() {
		s.SetErr(res.Err)
		h.redirect(w, r, s, "/todo")
		return
	}
	if id, _ := strconv.ParseInt(f.LoginID, 10, 64); id != l.ID {
		h.entry(r).Warnf("cancel page requested for account %s", f.LoginID)
		s.SetErrMsg(model.MsgAccountMismatch)
		h.redirect(w, r, s, "/todo")
		return
	}

	u, out := h.users.GetUserByID(r.Context(), l.ID)
	if !out.OK() {
		h.outcome(w, r, s, out, "/todo")
		return
	}

	pd, ok := h.formPage(w, r, s, "Cancel account")
	if !ok {
		return
	}
	h.render(w, r, s, "cancel", cancelPage{PageData: pd, LoginID: u.ID, UserName: u.UserName})
}

func (h *handler) cancelAccount(r *http.Request, s *session.Session, f *model.CancelForm) result {
	l := currentLogin(s)
	if id, _ := strconv.ParseInt(f.LoginID, 10, 64); id != l.ID {
		return result{out: service.Reject(model.MsgAccountMismatch), back: "/todo"}
	}
	if out := h.users.Cancel(r.Context(), l.ID); !out.OK() {
		return rejected(out)
	}
	s.ClearLogin()
	s.ClearEnrolKey()
	return done("/login", model.MsgAccountCancelled)
}

// totpPage shows a QR code for a new TOTP key. The key stays in the session
// until a code confirms it, so reloading shows the same key.
func (h *handler) totpPage(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	l := currentLogin(s)

	u, out := h.users.GetUserByID(r.Context(), l.ID)
	if !out.OK() {
		h.outcome(w, r, s, out, "/todo")
		return
	}

	key, err := enrolKey(s)
	if err != nil || key == nil {
		if key, err = h.users.BeginTOTP(l); err != nil {
			h.fail(w, r, s, fmt.Errorf("generate totp key: %w", err))
			return
		}
		s.SetEnrolKey(key.String())
	}

	qr, err := qrDataURI(key)
	if err != nil {
		h.fail(w, r, s, err)
		return
	}

	pd, ok := h.formPage(w, r, s, "Two-factor authentication")
	if !ok {
		return
	}
	h.render(w, r, s, "totp", totpPage{
		PageData: pd,
		QR:       qr,
		Secret:   key.Secret(),
		Enabled:  u.TOTPEnabled(),
	})
}

func (h *handler) enableTOTP(r *http.Request, s *session.Session, f *model.TOTPForm) result {
	key, err := enrolKey(s)
	if err != nil || key == nil {
		return rejected(service.Reject(model.MsgInvalidProcess))
	}
	if out := h.users.EnableTOTP(r.Context(), currentLogin(s).ID, key.Secret(), f.Code); !out.OK() {
		return rejected(out)
	}
	s.ClearEnrolKey()
	return done("/todo", model.MsgOTPEnabled)
}

// enrolKey returns the pending key, or nil when none is stored.
func enrolKey(s *session.Session) (*otp.Key, error) {
	raw := s.EnrolKey()
	if raw == "" {
		return nil, nil
	}
	return otp.NewKeyFromURL(raw)
}

func qrDataURI(key *otp.Key) (template.URL, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", fmt.Errorf("render totp qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode totp qr code: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
