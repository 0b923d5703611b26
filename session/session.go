// Package session carries per-visitor state across redirects: the signed-in
// identity, the one-time form token and the read-once flash maps (err,
// success, fill).
package session

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/stenstromen/todogate/model"
)

const (
	keyLogin      = "login"
	keyErr        = "err"
	keySuccess    = "success"
	keyFill       = "fill"
	keyToken      = "token"
	keyPendingOTP = "otp_pending"
	keyTOTPEnrol  = "totp_enrol"
)

func init() {
	gob.Register(model.Login{})
	gob.Register(model.Messages{})
	gob.Register(model.Fill{})
}

// Session is a typed view over one gorilla session.
type Session struct {
	raw *sessions.Session
}

func (s *Session) IsNew() bool {
	return s.raw.IsNew
}

func (s *Session) Login() (model.Login, bool) {
	l, ok := s.raw.Values[keyLogin].(model.Login)
	return l, ok
}

func (s *Session) SetLogin(l model.Login) {
	s.raw.Values[keyLogin] = l
}

func (s *Session) ClearLogin() {
	delete(s.raw.Values, keyLogin)
}

func (s *Session) SetErr(m model.Messages) {
	s.raw.Values[keyErr] = m
}

// SetErrMsg replaces the error flash with a single page-level message.
func (s *Session) SetErrMsg(msg string) {
	s.SetErr(model.Messages{model.MsgKey: msg})
}

func (s *Session) PopErr() model.Messages {
	return s.popMessages(keyErr)
}

func (s *Session) ClearErr() {
	delete(s.raw.Values, keyErr)
}

func (s *Session) SetSuccessMsg(msg string) {
	s.raw.Values[keySuccess] = model.Messages{model.MsgKey: msg}
}

func (s *Session) PopSuccess() model.Messages {
	return s.popMessages(keySuccess)
}

func (s *Session) SetFill(f model.Fill) {
	if len(f) == 0 {
		delete(s.raw.Values, keyFill)
		return
	}
	s.raw.Values[keyFill] = f
}

func (s *Session) PopFill() model.Fill {
	f, _ := s.raw.Values[keyFill].(model.Fill)
	delete(s.raw.Values, keyFill)
	return f
}

func (s *Session) ClearFill() {
	delete(s.raw.Values, keyFill)
}

func (s *Session) Token() string {
	t, _ := s.raw.Values[keyToken].(string)
	return t
}

func (s *Session) SetToken(t string) {
	if t == "" {
		delete(s.raw.Values, keyToken)
		return
	}
	s.raw.Values[keyToken] = t
}

// PendingOTP returns the user that passed the password check and still owes
// a one-time code.
func (s *Session) PendingOTP() (int64, bool) {
	id, ok := s.raw.Values[keyPendingOTP].(int64)
	return id, ok
}

func (s *Session) SetPendingOTP(userID int64) {
	s.raw.Values[keyPendingOTP] = userID
}

func (s *Session) ClearPendingOTP() {
	delete(s.raw.Values, keyPendingOTP)
}

// EnrolKey is the otpauth URL of a TOTP key shown on the enrolment page and
// not yet confirmed with a code.
func (s *Session) EnrolKey() string {
	v, _ := s.raw.Values[keyTOTPEnrol].(string)
	return v
}

func (s *Session) SetEnrolKey(url string) {
	s.raw.Values[keyTOTPEnrol] = url
}

func (s *Session) ClearEnrolKey() {
	delete(s.raw.Values, keyTOTPEnrol)
}

func (s *Session) Save(w http.ResponseWriter, r *http.Request) error {
	return s.raw.Save(r, w)
}

func (s *Session) popMessages(key string) model.Messages {
	m, _ := s.raw.Values[key].(model.Messages)
	delete(s.raw.Values, key)
	return m
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session injected by Manager.Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
