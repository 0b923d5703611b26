package mailer

import (
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenstromen/todogate/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type captured struct {
	e    *email.Email
	addr string
	auth smtp.Auth
}

func newCapturingSender(cfg Config, err error) (*Sender, *[]captured) {
	var sent []captured
	s := NewSender(cfg, quietLogger())
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sent = append(sent, captured{e: e, addr: addr, auth: auth})
		return err
	}
	return s, &sent
}

func TestSendWelcome(t *testing.T) {
	s, sent := newCapturingSender(Config{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "todo@example.com"}, nil)

	require.NoError(t, s.SendWelcome("h@example.com", "Hanako"))
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.NotNil(t, got.auth)
	assert.Equal(t, []string{"h@example.com"}, got.e.To)
	assert.Equal(t, "todo@example.com", got.e.From)
	assert.Contains(t, string(got.e.Text), "Dear Hanako")
}

func TestSendOverdueReminder(t *testing.T) {
	s, sent := newCapturingSender(Config{Host: "localhost", Port: "25", From: "todo@example.com"}, nil)
	due := time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC)

	items := []model.TodoItem{
		{Title: "report", Assignee: "Taro", ExpirationDate: due},
		{Title: "slides", Assignee: "Hanako", ExpirationDate: due.AddDate(0, 0, 1)},
	}
	require.NoError(t, s.SendOverdueReminder("h@example.com", "Hanako", items))
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Nil(t, got.auth, "no auth without username")
	assert.Equal(t, "2 overdue to-do items", got.e.Subject)
	assert.Contains(t, string(got.e.Text), "report (assignee: Taro, due 2024-02-12)")
	assert.Contains(t, string(got.e.Text), "slides (assignee: Hanako, due 2024-02-13)")
}

func TestDisabledSenderDoesNothing(t *testing.T) {
	s, sent := newCapturingSender(Config{}, nil)
	assert.False(t, s.Enabled())
	require.NoError(t, s.SendWelcome("h@example.com", "Hanako"))
	assert.Empty(t, *sent)
}

func TestSendError(t *testing.T) {
	s, _ := newCapturingSender(Config{Host: "localhost", Port: "25"}, errors.New("connection refused"))
	err := s.SendWelcome("h@example.com", "Hanako")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
