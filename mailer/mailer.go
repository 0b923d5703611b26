package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/stenstromen/todogate/model"
)

// Config holds the SMTP settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *Sender) Enabled() bool {
	return s.cfg.Host != ""
}

// SendWelcome greets a newly registered user
func (s *Sender) SendWelcome(to, userName string) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = "Welcome to your to-do list"
	e.Text = []byte(fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your account has been created. You can now log in and start adding items.\n"+
			"\nBest regards,\nTodo Gate", userName))

	return s.deliver(e)
}

// SendOverdueReminder lists the user's items that are past their due date
func (s *Sender) SendOverdueReminder(to, userName string, items []model.TodoItem) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	if len(items) == 1 {
		e.Subject = "1 overdue to-do item"
	} else {
		e.Subject = fmt.Sprintf("%d overdue to-do items", len(items))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\nThe following items are past their due date:\n\n", userName)
	for _, it := range items {
		fmt.Fprintf(&body, "  - %s (assignee: %s, due %s)\n",
			it.Title, it.Assignee, it.ExpirationDate.Format("2006-01-02"))
	}
	body.WriteString("\nBest regards,\nTodo Gate")
	e.Text = []byte(body.String())

	return s.deliver(e)
}

func (s *Sender) deliver(e *email.Email) error {
	if !s.Enabled() {
		s.logger.Debugf("SMTP disabled, not sending %q to %s", e.Subject, strings.Join(e.To, ","))
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", strings.Join(e.To, ","), err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", strings.Join(e.To, ","), e.Subject)
	return nil
}
