package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stenstromen/todogate/db"
	"github.com/stenstromen/todogate/model"
)

type fakeMail struct {
	sent []string
	err  error
}

func (f *fakeMail) SendWelcome(to, userName string) error {
	f.sent = append(f.sent, to)
	return f.err
}

// brokenStore fails every call with a storage error.
type brokenStore struct{}

var errBroken = errors.New("db error: connection reset")

func (brokenStore) CreateUser(context.Context, *model.User) error {
	return errBroken
}

func (brokenStore) UserByEmail(context.Context, string) (*model.User, error) {
	return nil, errBroken
}

func (brokenStore) UserByID(context.Context, int64) (*model.User, error) {
	return nil, errBroken
}

func (brokenStore) DeleteUser(context.Context, int64) error {
	return errBroken
}

func (brokenStore) SetTOTPSecret(context.Context, int64, string) error {
	return errBroken
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newUsers(t *testing.T) (*Users, *db.Memory, *fakeMail) {
	t.Helper()
	store := db.NewMemory()
	mail := &fakeMail{}
	return NewUsers(store, mail, quietLogger(), bcrypt.MinCost, "Test"), store, mail
}

func signup(email string) model.SignupForm {
	return model.SignupForm{
		UserName:        "Hanako",
		Email:           email,
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
	}
}

func TestAddUser(t *testing.T) {
	users, store, mail := newUsers(t)
	ctx := context.Background()

	u, out := users.AddUser(ctx, signup("h@example.com"))
	require.True(t, out.OK(), out.String())
	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "correct horse", u.Password, "password is stored hashed")
	assert.Equal(t, []string{"h@example.com"}, mail.sent)
	assert.Equal(t, 1, store.UserCount())
}

func TestAddUser_Duplicate(t *testing.T) {
	users, store, _ := newUsers(t)
	ctx := context.Background()

	_, out := users.AddUser(ctx, signup("h@example.com"))
	require.True(t, out.OK())

	_, out = users.AddUser(ctx, signup("h@example.com"))
	assert.Equal(t, KindRejected, out.Kind)
	assert.Equal(t, model.MsgUserDuplicate, out.Reason)
	assert.Equal(t, 1, store.UserCount())
}

func TestAddUser_MailFailureIsNotFatal(t *testing.T) {
	users, _, mail := newUsers(t)
	mail.err = errors.New("smtp down")

	_, out := users.AddUser(context.Background(), signup("h@example.com"))
	assert.True(t, out.OK())
}

func TestAddUser_StorageFailure(t *testing.T) {
	users := NewUsers(brokenStore{}, &fakeMail{}, quietLogger(), bcrypt.MinCost, "")
	_, out := users.AddUser(context.Background(), signup("h@example.com"))
	assert.Equal(t, KindFailed, out.Kind)
	assert.ErrorIs(t, out.Err, errBroken)
	assert.ErrorContains(t, out.Err, "create user")
	assert.Regexp(t, `^users\.go:\d+$`, out.At)
}

func TestAddUser_PasswordTooLongForBcrypt(t *testing.T) {
	users, store, _ := newUsers(t)
	f := signup("h@example.com")
	f.Password = strings.Repeat("é", 72)
	f.PasswordConfirm = f.Password

	_, out := users.AddUser(context.Background(), f)
	assert.Equal(t, Reject(model.MsgPasswordTooLong), out)
	assert.Equal(t, 0, store.UserCount())
}

func TestAddUser_EmailIsCaseInsensitive(t *testing.T) {
	users, store, _ := newUsers(t)
	ctx := context.Background()

	u, out := users.AddUser(ctx, signup(" Hanako@Example.COM "))
	require.True(t, out.OK(), out.String())
	assert.Equal(t, "hanako@example.com", u.Email)

	_, out = users.AddUser(ctx, signup("hanako@example.com"))
	assert.Equal(t, Reject(model.MsgUserDuplicate), out)
	assert.Equal(t, 1, store.UserCount())

	got, out := users.Login(ctx, model.LoginForm{Email: "HANAKO@example.com", Password: "correct horse"})
	require.True(t, out.OK(), out.String())
	assert.Equal(t, u.ID, got.ID)
}

func TestLogin(t *testing.T) {
	users, _, _ := newUsers(t)
	ctx := context.Background()
	created, out := users.AddUser(ctx, signup("h@example.com"))
	require.True(t, out.OK())

	tests := []struct {
		name     string
		form     model.LoginForm
		wantKind Kind
	}{
		{"valid", model.LoginForm{Email: "h@example.com", Password: "correct horse"}, KindOK},
		{"wrong password", model.LoginForm{Email: "h@example.com", Password: "battery staple"}, KindRejected},
		{"unknown email", model.LoginForm{Email: "nobody@example.com", Password: "correct horse"}, KindRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, out := users.Login(ctx, tt.form)
			assert.Equal(t, tt.wantKind, out.Kind)
			if tt.wantKind == KindOK {
				require.NotNil(t, u)
				assert.Equal(t, created.ID, u.ID)
			} else {
				assert.Nil(t, u)
				assert.Equal(t, model.MsgFailureToLogin, out.Reason)
			}
		})
	}
}

func TestLogin_StorageFailure(t *testing.T) {
	users := NewUsers(brokenStore{}, &fakeMail{}, quietLogger(), bcrypt.MinCost, "")
	_, out := users.Login(context.Background(), model.LoginForm{Email: "h@example.com", Password: "x"})
	assert.Equal(t, KindFailed, out.Kind)
}

func TestGetUserByID(t *testing.T) {
	users, _, _ := newUsers(t)
	ctx := context.Background()
	created, _ := users.AddUser(ctx, signup("h@example.com"))

	u, out := users.GetUserByID(ctx, created.ID)
	require.True(t, out.OK())
	assert.Equal(t, "Hanako", u.UserName)

	_, out = users.GetUserByID(ctx, created.ID+100)
	assert.Equal(t, Reject(model.MsgUserNotFound), out)
}

func TestCancel(t *testing.T) {
	users, store, _ := newUsers(t)
	ctx := context.Background()
	created, _ := users.AddUser(ctx, signup("h@example.com"))

	assert.True(t, users.Cancel(ctx, created.ID).OK())
	assert.Equal(t, 0, store.UserCount())
	assert.Equal(t, KindRejected, users.Cancel(ctx, created.ID).Kind)
}

func TestTOTPEnrolmentAndVerify(t *testing.T) {
	users, _, _ := newUsers(t)
	ctx := context.Background()
	created, _ := users.AddUser(ctx, signup("h@example.com"))

	key, err := users.BeginTOTP(model.Login{ID: created.ID, Email: created.Email})
	require.NoError(t, err)
	assert.Equal(t, "Test", key.Issuer())

	assert.Equal(t, Reject(model.MsgOTPInvalid), users.EnableTOTP(ctx, created.ID, key.Secret(), "abcdef"))

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	require.True(t, users.EnableTOTP(ctx, created.ID, key.Secret(), code).OK())

	u, out := users.VerifyTOTP(ctx, created.ID, model.OTPForm{Code: code})
	require.True(t, out.OK())
	assert.True(t, u.TOTPEnabled())

	_, out = users.VerifyTOTP(ctx, created.ID, model.OTPForm{Code: "12345"})
	assert.Equal(t, Reject(model.MsgOTPInvalid), out)
}

func TestEnableTOTP_EmptySecret(t *testing.T) {
	users, _, _ := newUsers(t)
	assert.Equal(t, Reject(model.MsgOTPInvalid), users.EnableTOTP(context.Background(), 1, "", "123456"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", Success().String())
	assert.Equal(t, "rejected: nope", Reject("nope").String())
	assert.Equal(t, "failed: boom", Fail(errors.New("boom")).String())
}

func TestFailRecordsCallSite(t *testing.T) {
	out := Fail(errors.New("boom"))
	assert.Regexp(t, `^users_test\.go:\d+$`, out.At)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "0", "-3", "x"} {
		_, err := parseID(s)
		assert.Error(t, err, s)
	}
}
