package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/stenstromen/todogate/db"
	"github.com/stenstromen/todogate/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	SetTOTPSecret(ctx context.Context, id int64, secret string) error
}

type WelcomeSender interface {
	SendWelcome(to, userName string) error
}

// Users handles registration, sign-in and account management
type Users struct {
	store  UserStore
	mail   WelcomeSender
	log    *logrus.Logger
	cost   int
	issuer string
}

func NewUsers(store UserStore, mail WelcomeSender, log *logrus.Logger, bcryptCost int, issuer string) *Users {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if issuer == "" {
		issuer = "TodoGate"
	}
	return &Users{store: store, mail: mail, log: log, cost: bcryptCost, issuer: issuer}
}

// Login checks the credentials. Unknown email and wrong password are the
// same rejection so the form does not reveal which accounts exist.
func (s *Users) Login(ctx context.Context, f model.LoginForm) (*model.User, Outcome) {
	u, err := s.store.UserByEmail(ctx, normalizeEmail(f.Email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, Reject(model.MsgFailureToLogin)
		}
		return nil, Fail(fmt.Errorf("look up user by email: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(f.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, Reject(model.MsgFailureToLogin)
		}
		return nil, Fail(fmt.Errorf("compare password for user %d: %w", u.ID, err))
	}

	s.log.Infof("User logged in: %d", u.ID)
	return u, Success()
}

// AddUser registers a new account. A duplicate email is rejected and
// nothing is written.
func (s *Users) AddUser(ctx context.Context, f model.SignupForm) (*model.User, Outcome) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, Reject(model.MsgPasswordTooLong)
		}
		return nil, Fail(fmt.Errorf("hash password: %w", err))
	}

	u := &model.User{
		UserName: f.UserName,
		Email:    normalizeEmail(f.Email),
		Password: string(hashed),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, Reject(model.MsgUserDuplicate)
		}
		return nil, Fail(fmt.Errorf("create user: %w", err))
	}

	s.log.Infof("User registered: %d", u.ID)
	if err := s.mail.SendWelcome(u.Email, u.UserName); err != nil {
		s.log.WithError(err).Warnf("welcome mail for user %d not sent", u.ID)
	}
	return u, Success()
}

func (s *Users) GetUserByID(ctx context.Context, id int64) (*model.User, Outcome) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, Reject(model.MsgUserNotFound)
		}
		return nil, Fail(fmt.Errorf("get user %d: %w", id, err))
	}
	return u, Success()
}

// Cancel deletes the account and everything it owns.
func (s *Users) Cancel(ctx context.Context, id int64) Outcome {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Reject(model.MsgUserNotFound)
		}
		return Fail(fmt.Errorf("delete user %d: %w", id, err))
	}
	s.log.Infof("User cancelled: %d", id)
	return Success()
}

// BeginTOTP generates a new secret for the user to scan. Nothing is stored
// until EnableTOTP confirms a code.
func (s *Users) BeginTOTP(l model.Login) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: l.Email,
	})
}

func (s *Users) EnableTOTP(ctx context.Context, id int64, secret, code string) Outcome {
	if secret == "" || !totp.Validate(code, secret) {
		return Reject(model.MsgOTPInvalid)
	}
	if err := s.store.SetTOTPSecret(ctx, id, secret); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Reject(model.MsgUserNotFound)
		}
		return Fail(fmt.Errorf("store totp secret for user %d: %w", id, err))
	}
	return Success()
}

// VerifyTOTP completes a login for a user that passed the password check.
func (s *Users) VerifyTOTP(ctx context.Context, id int64, f model.OTPForm) (*model.User, Outcome) {
	u, out := s.GetUserByID(ctx, id)
	if !out.OK() {
		return nil, out
	}
	if u.TOTPEnabled() && !totp.Validate(f.Code, u.TOTPSecret) {
		return nil, Reject(model.MsgOTPInvalid)
	}
	return u, Success()
}

// Addresses are stored lower-cased so every backend compares them the same way.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
