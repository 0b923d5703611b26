package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

const (
	StoreCookie     = "cookie"
	StoreFilesystem = "filesystem"
)

type Options struct {
	Name   string
	Secret string
	Store  string
	Path   string
	MaxAge int
	Secure bool
}

// Manager loads sessions from the configured gorilla store.
type Manager struct {
	store sessions.Store
	name  string
	log   *logrus.Logger
}

func NewManager(o Options, log *logrus.Logger) (*Manager, error) {
	if o.Secret == "" {
		return nil, errors.New("session secret is not set")
	}
	if o.Name == "" {
		o.Name = "todogate"
	}

	// hash key from the secret, block key derived so cookie contents are not readable
	blockKey := sha256.Sum256([]byte("todogate-block:" + o.Secret))
	keys := [][]byte{[]byte(o.Secret), blockKey[:]}

	cookie := sessions.Options{
		Path:     "/",
		MaxAge:   o.MaxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	var store sessions.Store
	switch o.Store {
	case "", StoreCookie:
		cs := sessions.NewCookieStore(keys...)
		cs.MaxAge(o.MaxAge)
		opts := cookie
		cs.Options = &opts
		store = cs
	case StoreFilesystem:
		if o.Path != "" {
			if err := os.MkdirAll(o.Path, 0o700); err != nil {
				return nil, fmt.Errorf("session directory: %w", err)
			}
		}
		fs := sessions.NewFilesystemStore(o.Path, keys...)
		fs.MaxAge(o.MaxAge)
		// server-side payload, the cookie only carries the id
		fs.MaxLength(0)
		opts := cookie
		fs.Options = &opts
		store = fs
	default:
		return nil, fmt.Errorf("unknown session store %q", o.Store)
	}

	return &Manager{store: store, name: o.Name, log: log}, nil
}

// Load returns the visitor's session. A cookie that cannot be decoded (for
// example after a secret rotation) yields a fresh session.
func (m *Manager) Load(r *http.Request) *Session {
	raw, err := m.store.Get(r, m.name)
	if err != nil {
		m.log.WithError(err).Warn("discarding undecodable session")
		raw = sessions.NewSession(m.store, m.name)
		raw.Options = m.options()
		raw.IsNew = true
	}
	return &Session{raw: raw}
}

func (m *Manager) options() *sessions.Options {
	switch s := m.store.(type) {
	case *sessions.CookieStore:
		o := *s.Options
		return &o
	case *sessions.FilesystemStore:
		o := *s.Options
		return &o
	}
	return &sessions.Options{Path: "/", HttpOnly: true}
}

// Middleware injects the visitor's session into the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}
