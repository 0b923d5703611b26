package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stenstromen/todogate/db/migrations"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrQuery marks any other storage failure.
	ErrQuery = errors.New("db error")
)

func queryErr(err error) error {
	return fmt.Errorf("%w: %w", ErrQuery, err)
}

type DB struct {
	Conn    *sql.DB
	dialect dialect
}

type dialect struct {
	goose     string
	sqlDriver string
	dir       string
	returning bool
	duplicate func(error) bool
}

var dialects = map[string]dialect{
	DriverMySQL: {
		goose:     "mysql",
		sqlDriver: "mysql",
		dir:       "mysql",
		duplicate: func(err error) bool {
			var me *mysql.MySQLError
			return errors.As(err, &me) && me.Number == 1062
		},
	},
	DriverPostgres: {
		goose:     "postgres",
		sqlDriver: "pgx",
		dir:       "postgres",
		returning: true,
		duplicate: func(err error) bool {
			var pe *pgconn.PgError
			return errors.As(err, &pe) && pe.Code == "23505"
		},
	},
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(q string) string {
	if !d.returning {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func New(driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverMySQL {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		// report matched rows so an unchanged UPDATE is not mistaken for a missing row
		cfg.ClientFoundRows = true
		dsn = cfg.FormatDSN()
	}

	conn, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Conn: conn, dialect: d}, nil
}

// NewWithConn wraps an already opened connection.
func NewWithConn(conn *sql.DB, driver string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return &DB{Conn: conn, dialect: d}, nil
}

func (db *DB) ConnectionCheck() error {
	if err := db.Conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}
	return nil
}

// Ping satisfies the health check used by the HTTP layer.
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.Conn.Close()
}

var gooseUpContext = func(ctx context.Context, conn *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, conn, dir, opts...)
}

// Migrate applies the embedded schema migrations for the active dialect.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(db.dialect.goose); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := gooseUpContext(ctx, db.Conn, db.dialect.dir); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// insert runs an INSERT and returns the new row id.
func (db *DB) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if db.dialect.returning {
		var id int64
		err := db.Conn.QueryRowContext(ctx, db.dialect.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := db.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// execOne runs a statement that must touch exactly one row.
func (db *DB) execOne(ctx context.Context, query string, args ...any) error {
	res, err := db.Conn.ExecContext(ctx, db.dialect.rebind(query), args...)
	if err != nil {
		return queryErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return queryErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
