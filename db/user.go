package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stenstromen/todogate/model"
)

const userColumns = `id, user_name, email, password, totp_secret, created_at`

// CreateUser inserts u and sets its ID. A taken email yields ErrDuplicate and
// writes nothing.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	id, err := db.insert(ctx,
		`INSERT INTO users (user_name, email, password, totp_secret) VALUES (?, ?, ?, ?)`,
		u.UserName, u.Email, u.Password, u.TOTPSecret)
	if err != nil {
		if db.dialect.duplicate(err) {
			return ErrDuplicate
		}
		return queryErr(err)
	}
	u.ID = id
	return nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.scanUser(db.Conn.QueryRowContext(ctx,
		db.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email))
}

func (db *DB) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.scanUser(db.Conn.QueryRowContext(ctx,
		db.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.Password, &u.TOTPSecret, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, queryErr(err)
	}
	return u, nil
}

// DeleteUser removes the account; its to-do items go with it.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	return db.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (db *DB) SetTOTPSecret(ctx context.Context, id int64, secret string) error {
	return db.execOne(ctx, `UPDATE users SET totp_secret = ? WHERE id = ?`, secret, id)
}
