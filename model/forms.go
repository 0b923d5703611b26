package model

type LoginForm struct {
	Email    string `schema:"email" label:"Email" validate:"required,max=255"`
	Password string `schema:"password" label:"Password" validate:"required" fill:"-"`
}

type SignupForm struct {
	UserName        string `schema:"user_name" label:"Name" validate:"required,max=50"`
	Email           string `schema:"email" label:"Email" validate:"required,email,max=255"`
	Password        string `schema:"password" label:"Password" validate:"required,min=8,max=72,maxbytes=72" fill:"-"`
	PasswordConfirm string `schema:"password_confirm" label:"Password confirmation" validate:"required,eqfield=Password" fill:"-"`
}

type TodoForm struct {
	ItemID         string `schema:"item_id" label:"Item" validate:"omitempty,numeric"`
	Title          string `schema:"title" label:"Title" validate:"required,max=100"`
	Assignee       string `schema:"assignee" label:"Assignee" validate:"required,max=50"`
	ExpirationDate string `schema:"expiration_date" label:"Due date" validate:"required,datetime=2006-01-02"`
	Finished       bool   `schema:"finished" label:"Finished"`
}

// ItemForm targets a single to-do item from the list buttons.
type ItemForm struct {
	ItemID string `schema:"item_id" label:"Item" validate:"required,numeric"`
}

type CancelForm struct {
	LoginID string `schema:"login_id" label:"Account" validate:"required,numeric"`
}

type OTPForm struct {
	Code string `schema:"code" label:"Code" validate:"required,len=6,numeric" fill:"-"`
}

// TOTPForm confirms enrolment of a freshly generated secret.
type TOTPForm struct {
	Code string `schema:"code" label:"Code" validate:"required,len=6,numeric" fill:"-"`
}

type LogoutForm struct{}
