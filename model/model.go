package model

import "time"

type User struct {
	ID         int64
	UserName   string
	Email      string
	Password   string
	TOTPSecret string
	CreatedAt  time.Time
}

// TOTPEnabled reports whether the user has a second login factor.
func (u *User) TOTPEnabled() bool {
	return u.TOTPSecret != ""
}

type TodoItem struct {
	ID               int64
	UserID           int64
	Title            string
	Assignee         string
	RegistrationDate time.Time
	ExpirationDate   time.Time
	FinishedDate     *time.Time
}

func (i *TodoItem) Finished() bool {
	return i.FinishedDate != nil
}

// Overdue reports whether the item is unfinished and past its due date on day.
func (i *TodoItem) Overdue(day time.Time) bool {
	if i.Finished() {
		return false
	}
	return i.ExpirationDate.Before(truncateDay(day))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Login is the identity kept in the session after a successful sign-in.
type Login struct {
	ID       int64
	Email    string
	UserName string
}

// Messages is a flash message map. The "msg" key carries the page-level
// message, every other key is a form field.
type Messages map[string]string

const MsgKey = "msg"

func (m Messages) Msg() string {
	return m[MsgKey]
}

// Fill holds sanitized form values echoed back after a failed submission.
type Fill map[string]string

type PageData struct {
	Title   string
	Login   *Login
	Token   string
	Err     Messages
	Success Messages
	Fill    Fill
}
