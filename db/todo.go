package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stenstromen/todogate/model"
)

const itemColumns = `id, user_id, title, assignee, registration_date, expiration_date, finished_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, extra ...any) (*model.TodoItem, error) {
	it := &model.TodoItem{}
	var finished sql.NullTime
	dest := append([]any{&it.ID, &it.UserID, &it.Title, &it.Assignee,
		&it.RegistrationDate, &it.ExpirationDate, &finished}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		it.FinishedDate = &t
	}
	return it, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// likePattern escapes LIKE wildcards in s and wraps it for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (db *DB) CreateItem(ctx context.Context, it *model.TodoItem) error {
	id, err := db.insert(ctx,
		`INSERT INTO todo_items (user_id, title, assignee, registration_date, expiration_date, finished_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		it.UserID, it.Title, it.Assignee, it.RegistrationDate, it.ExpirationDate, nullDate(it.FinishedDate))
	if err != nil {
		return queryErr(err)
	}
	it.ID = id
	return nil
}

// ItemsByOwner lists the owner's items by due date. A non-empty search
// narrows to items whose title or assignee contains it.
func (db *DB) ItemsByOwner(ctx context.Context, owner int64, search string) ([]model.TodoItem, error) {
	query := `SELECT ` + itemColumns + ` FROM todo_items WHERE user_id = ?`
	args := []any{owner}
	if search != "" {
		query += ` AND (title LIKE ? OR assignee LIKE ?)`
		p := likePattern(search)
		args = append(args, p, p)
	}
	query += ` ORDER BY expiration_date, id`

	rows, err := db.Conn.QueryContext(ctx, db.dialect.rebind(query), args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var items []model.TodoItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, queryErr(err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err)
	}
	return items, nil
}

func (db *DB) ItemByID(ctx context.Context, id int64) (*model.TodoItem, error) {
	row := db.Conn.QueryRowContext(ctx,
		db.dialect.rebind(`SELECT `+itemColumns+` FROM todo_items WHERE id = ?`), id)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, queryErr(err)
	}
	return it, nil
}

// UpdateItem rewrites the editable fields of an item owned by it.UserID.
func (db *DB) UpdateItem(ctx context.Context, it *model.TodoItem) error {
	return db.execOne(ctx,
		`UPDATE todo_items SET title = ?, assignee = ?, expiration_date = ?, finished_date = ?
		 WHERE id = ? AND user_id = ?`,
		it.Title, it.Assignee, it.ExpirationDate, nullDate(it.FinishedDate), it.ID, it.UserID)
}

func (db *DB) CompleteItem(ctx context.Context, id, owner int64, day time.Time) error {
	return db.execOne(ctx,
		`UPDATE todo_items SET finished_date = ? WHERE id = ? AND user_id = ?`,
		day, id, owner)
}

func (db *DB) DeleteItem(ctx context.Context, id, owner int64) error {
	return db.execOne(ctx, `DELETE FROM todo_items WHERE id = ? AND user_id = ?`, id, owner)
}

// OverdueItems returns every unfinished item due before day, grouped by owner.
func (db *DB) OverdueItems(ctx context.Context, day time.Time) ([]model.OverdueItem, error) {
	query := `SELECT t.id, t.user_id, t.title, t.assignee, t.registration_date, t.expiration_date, t.finished_date,
		u.email, u.user_name
		FROM todo_items t JOIN users u ON u.id = t.user_id
		WHERE t.finished_date IS NULL AND t.expiration_date < ?
		ORDER BY t.user_id, t.expiration_date`

	rows, err := db.Conn.QueryContext(ctx, db.dialect.rebind(query), day)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []model.OverdueItem
	for rows.Next() {
		var o model.OverdueItem
		it, err := scanItem(rows, &o.Email, &o.UserName)
		if err != nil {
			return nil, queryErr(err)
		}
		o.Item = *it
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr(err)
	}
	return out, nil
}
