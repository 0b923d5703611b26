package api

import (
	"net/http"
	"net/url"

	"github.com/stenstromen/todogate/model"
	"github.com/stenstromen/todogate/sanitize"
	"github.com/stenstromen/todogate/service"
	"github.com/stenstromen/todogate/session"
	"github.com/stenstromen/todogate/token"
	"github.com/stenstromen/todogate/validate"
)

// Fields that reach the service exactly as typed.
var secretFields = []string{"password", "password_confirm"}

// Largest form body a submission may carry.
const maxFormBytes = 64 << 10

// result is what a form action hands back to the pipeline.
type result struct {
	out     service.Outcome
	next    string // redirect after success
	success string // success flash, optional
	back    string // redirect after rejection, defaults to the form
}

func done(next, success string) result {
	return result{out: service.Success(), next: next, success: success}
}

func rejected(out service.Outcome) result {
	return result{out: out}
}

// backFunc names the page a submission returns to when it is refused.
type backFunc func(r *http.Request) string

func to(path string) backFunc {
	return func(*http.Request) string { return path }
}

func editBack(r *http.Request) string {
	return "/todo/edit?" + url.Values{"item_id": {r.PostForm.Get("item_id")}}.Encode()
}

func cancelBack(r *http.Request) string {
	return "/account/cancel?" + url.Values{"login_id": {r.PostForm.Get("login_id")}}.Encode()
}

// submit runs the shared POST pipeline: token check, sanitizing, form
// validation, then exactly one action. Every path ends in a 303 redirect.
func submit[F any](h *handler, back backFunc, action func(r *http.Request, s *session.Session, f *F) result) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			h.entry(r).WithError(err).Warn("unreadable form")
			s.SetErrMsg(model.MsgInvalidRequest)
			h.redirect(w, r, s, back(r))
			return
		}
		origin := back(r)

		if !token.Validate(s, r.PostForm.Get("token")) {
			h.entry(r).Warn("form token mismatch")
			s.SetErrMsg(model.MsgInvalidProcess)
			h.redirect(w, r, s, origin)
			return
		}

		var f F
		res := validate.Form(&f, sanitize.Values(r.PostForm, secretFields...))
		s.SetFill(sanitize.Fill(res.Fill))
		if !res.Valid() {
			s.SetErr(res.Err)
			h.redirect(w, r, s, origin)
			return
		}

		rr := action(r, s, &f)
		switch rr.out.Kind {
		case service.KindOK:
			s.ClearErr()
			s.ClearFill()
			if rr.success != "" {
				s.SetSuccessMsg(rr.success)
			}
			h.redirect(w, r, s, rr.next)
		case service.KindRejected:
			s.SetErrMsg(rr.out.Reason)
			if rr.back != "" {
				origin = rr.back
			}
			h.redirect(w, r, s, origin)
		default:
			h.failAt(w, r, s, rr.out.Err, rr.out.At)
		}
	})
}
