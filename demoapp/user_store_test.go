package demoapp_test

import (
	"context"
	"testing"

	"github.com/jackc/sessionprobe/demoapp"
	"github.com/stretchr/testify/require"
)

// testUserStore runs the checks every UserStore implementation must pass.
func testUserStore(t *testing.T, store demoapp.UserStore) {
	ctx := context.Background()

	user, err := demoapp.NewUser("jack", "secret", false)
	require.NoError(t, err)
	require.NotEmpty(t, user.PasswordDigest)
	require.Len(t, user.PasswordSalt, 8)

	require.NoError(t, store.CreateUser(ctx, user))

	err = store.CreateUser(ctx, user)
	require.ErrorAs(t, err, &demoapp.DuplicationError{})

	found, err := store.UserByName(ctx, "jack")
	require.NoError(t, err)
	require.Equal(t, user, found)

	_, err = store.UserByName(ctx, "nobody")
	require.ErrorIs(t, err, demoapp.ErrNotFound)

	authenticated, err := demoapp.Authenticate(ctx, store, "jack", "secret")
	require.NoError(t, err)
	require.Equal(t, "jack", authenticated.Name)

	_, err = demoapp.Authenticate(ctx, store, "jack", "wrong")
	require.ErrorIs(t, err, demoapp.ErrBadPassword)

	_, err = demoapp.Authenticate(ctx, store, "nobody", "secret")
	require.ErrorIs(t, err, demoapp.ErrUnknownUser)

	require.NoError(t, store.DeleteUser(ctx, "jack"))
	require.ErrorIs(t, store.DeleteUser(ctx, "jack"), demoapp.ErrNotFound)
}

func testSeed(t *testing.T, store demoapp.UserStore) {
	ctx := context.Background()

	require.NoError(t, demoapp.Seed(ctx, store, demoapp.DefaultUsers))
	// Seeding again leaves existing users alone.
	require.NoError(t, demoapp.Seed(ctx, store, []demoapp.SeedUser{{Name: "user1", Password: "changed"}}))

	_, err := demoapp.Authenticate(ctx, store, "user1", "password1")
	require.NoError(t, err)

	_, err = demoapp.Authenticate(ctx, store, "locked_out_user", "password1")
	require.ErrorIs(t, err, demoapp.ErrLockedOut)
}

func TestMemoryUserStore(t *testing.T) {
	testUserStore(t, demoapp.NewMemoryUserStore())
}

func TestMemoryUserStoreSeed(t *testing.T) {
	testSeed(t, demoapp.NewMemoryUserStore())
}

func TestMemoryUserStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := demoapp.NewMemoryUserStore()

	user, err := demoapp.NewUser("jack", "secret", false)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, user))

	found, err := store.UserByName(ctx, "jack")
	require.NoError(t, err)
	found.Locked = true
	found.PasswordDigest[0]++

	_, err = demoapp.Authenticate(ctx, store, "jack", "secret")
	require.NoError(t, err)
}
