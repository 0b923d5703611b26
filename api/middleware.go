package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/stenstromen/todogate/model"
	"github.com/stenstromen/todogate/session"
)

type entryKey struct{}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// entry returns the request scoped log entry.
func (h *handler) entry(r *http.Request) *logrus.Entry {
	if e, ok := r.Context().Value(entryKey{}).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(h.log)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		e := h.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		if l, ok := session.FromContext(r.Context()).Login(); ok {
			e = e.WithField("user_id", l.ID)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), entryKey{}, e)))

		e.WithFields(logrus.Fields{
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		h.metrics.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		h.metrics.requests.WithLabelValues(route, r.Method, fmt.Sprint(rec.status)).Inc()
	})
}

// recoverPanic turns a handler panic into the error page.
func (h *handler) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				h.entry(r).WithField("stack", string(debug.Stack())).Errorf("panic: %v", v)
				s := session.FromContext(r.Context())
				s.SetErrMsg(model.MsgExceptionError)
				h.redirect(w, r, s, "/error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireLogin sends visitors without a login to the login form.
func (h *handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()).Login(); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) limitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiters.get(clientIP(r)).Allow() {
			h.metrics.logins.WithLabelValues("throttled").Inc()
			h.entry(r).Warn("login throttled")
			s := session.FromContext(r.Context())
			s.SetErrMsg(model.MsgTooManyAttempts)
			h.redirect(w, r, s, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterRegistry keeps one token bucket per client address.
type limiterRegistry struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
	swept    time.Time
}

func newLimiterRegistry(perSecond float64, burst int) *limiterRegistry {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &limiterRegistry{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		swept:    time.Now(),
	}
}

func (l *limiterRegistry) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.swept) > limiterIdle {
		for k, e := range l.limiters {
			if now.Sub(e.seen) > limiterIdle {
				delete(l.limiters, k)
			}
		}
		l.swept = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.seen = now
	return e.lim
}
