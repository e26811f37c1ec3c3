package demoapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgsql"
	log15adapter "github.com/jackc/pgx-log15"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jackc/pgxrecord"
	log "gopkg.in/inconshreveable/log15.v2"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

const createUsersSQL = `create table if not exists demo_users(
  name text primary key check(name <> ''),
  password_digest bytea not null,
  password_salt bytea not null,
  locked boolean not null default false
)`

// NewPool connects to PostgreSQL, logging queries to logger at pgxLevel ("trace", "debug", "info", "warn", "error"
// or "none").
func NewPool(ctx context.Context, connString string, logger log.Logger, pgxLevel string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("bad database config: %w", err)
	}

	if pgxLevel != "" && pgxLevel != "none" {
		level, err := tracelog.LogLevelFromString(pgxLevel)
		if err != nil {
			return nil, fmt.Errorf("bad pgx log level: %w", err)
		}
		config.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   log15adapter.NewLogger(logger.New("module", "pgx")),
			LogLevel: level,
		}
	}

	return pgxpool.NewWithConfig(ctx, config)
}

// PGUserStore keeps users in the demo_users table.
type PGUserStore struct {
	db Queryer
}

func NewPGUserStore(db Queryer) *PGUserStore {
	return &PGUserStore{db: db}
}

func (s *PGUserStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createUsersSQL)
	return err
}

func (s *PGUserStore) CreateUser(ctx context.Context, user *User) error {
	args := pgsql.Args{}

	var columns, values []string

	columns = append(columns, `name`)
	values = append(values, args.Use(user.Name).String())
	columns = append(columns, `password_digest`)
	values = append(values, args.Use(user.PasswordDigest).String())
	columns = append(columns, `password_salt`)
	values = append(values, args.Use(user.PasswordSalt).String())
	columns = append(columns, `locked`)
	values = append(values, args.Use(user.Locked).String())

	sql := `insert into "demo_users"(` + strings.Join(columns, ", ") + `)
values(` + strings.Join(values, ",") + `)`

	_, err := s.db.Exec(ctx, sql, args.Values()...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return DuplicationError{Field: "name"}
		}
		return err
	}

	return nil
}

const selectUserByNameSQL = `select
  "name",
  "password_digest",
  "password_salt",
  "locked"
from "demo_users"
where "name"=$1`

func (s *PGUserStore) UserByName(ctx context.Context, name string) (*User, error) {
	var user User
	err := s.db.QueryRow(ctx, selectUserByNameSQL, name).Scan(
		&user.Name,
		&user.PasswordDigest,
		&user.PasswordSalt,
		&user.Locked,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *PGUserStore) DeleteUser(ctx context.Context, name string) error {
	_, err := pgxrecord.ExecRow(ctx, s.db, `delete from demo_users where name = $1`, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	return nil
}
