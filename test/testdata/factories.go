package testdata

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgxutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/scrypt"
)

var counter atomic.Int64

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateUser inserts a row into demo_users. A "password" attribute is replaced with its digest and salt. The table
// must already exist.
func CreateUser(t testing.TB, db DB, ctx context.Context, attrs map[string]any) map[string]any {
	if attrs == nil {
		attrs = make(map[string]any)
	}

	if password, ok := attrs["password"]; ok {
		salt := make([]byte, 8)
		_, err := rand.Read(salt)
		require.NoError(t, err)

		digest, err := scrypt.Key([]byte(fmt.Sprint(password)), salt, 16384, 8, 1, 32)
		require.NoError(t, err)

		delete(attrs, "password")
		attrs["password_digest"] = digest
		attrs["password_salt"] = salt
	}

	if _, ok := attrs["name"]; !ok {
		attrs["name"] = fmt.Sprintf("user%v", counter.Add(1))
	}

	user, err := pgxutil.Insert(ctx, db, "demo_users", attrs)
	require.NoError(t, err)

	return user
}
