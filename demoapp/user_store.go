package demoapp

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/scrypt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownUser = errors.New("unknown user")
	ErrBadPassword = errors.New("bad password")
	ErrLockedOut   = errors.New("user is locked out")
)

type DuplicationError struct {
	Field string
}

func (e DuplicationError) Error() string {
	return fmt.Sprintf("%s is already taken", e.Field)
}

type User struct {
	Name           string
	PasswordDigest []byte
	PasswordSalt   []byte
	Locked         bool
}

type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	// UserByName returns ErrNotFound when there is no such user.
	UserByName(ctx context.Context, name string) (*User, error)
	DeleteUser(ctx context.Context, name string) error
}

func digestPassword(password string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(password), salt, 16384, 8, 1, 32)
}

func SetPassword(u *User, password string) error {
	salt := make([]byte, 8)
	_, err := rand.Read(salt)
	if err != nil {
		return err
	}

	digest, err := digestPassword(password, salt)
	if err != nil {
		return err
	}

	u.PasswordDigest = digest
	u.PasswordSalt = salt

	return nil
}

// NewUser builds a user ready to be stored.
func NewUser(name, password string, locked bool) (*User, error) {
	user := &User{Name: name, Locked: locked}
	err := SetPassword(user, password)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate distinguishes an unknown user from a bad password because the login form reports them differently.
func Authenticate(ctx context.Context, store UserStore, name, password string) (*User, error) {
	user, err := store.UserByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	digest, err := digestPassword(password, user.PasswordSalt)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(digest, user.PasswordDigest) {
		return nil, ErrBadPassword
	}

	if user.Locked {
		return nil, ErrLockedOut
	}

	return user, nil
}

type MemoryUserStore struct {
	mutex sync.Mutex
	users map[string]*User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*User)}
}

func copyUser(src *User) *User {
	user := &User{Name: src.Name, Locked: src.Locked}
	user.PasswordDigest = make([]byte, len(src.PasswordDigest))
	copy(user.PasswordDigest, src.PasswordDigest)
	user.PasswordSalt = make([]byte, len(src.PasswordSalt))
	copy(user.PasswordSalt, src.PasswordSalt)
	return user
}

func (s *MemoryUserStore) CreateUser(ctx context.Context, user *User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[user.Name]; ok {
		return DuplicationError{Field: "name"}
	}
	s.users[user.Name] = copyUser(user)
	return nil
}

func (s *MemoryUserStore) UserByName(ctx context.Context, name string) (*User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, ok := s.users[name]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *MemoryUserStore) DeleteUser(ctx context.Context, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[name]; !ok {
		return ErrNotFound
	}
	delete(s.users, name)
	return nil
}

type SeedUser struct {
	Name     string
	Password string
	Locked   bool
}

// DefaultUsers are the accounts testdata/demo.conf expects.
var DefaultUsers = []SeedUser{
	{Name: "user1", Password: "password1"},
	{Name: "locked_out_user", Password: "password1", Locked: true},
}

// Seed creates users. Users that already exist are left unchanged.
func Seed(ctx context.Context, store UserStore, users []SeedUser) error {
	for _, su := range users {
		user, err := NewUser(su.Name, su.Password, su.Locked)
		if err != nil {
			return err
		}

		err = store.CreateUser(ctx, user)
		var dupErr DuplicationError
		if err != nil && !errors.As(err, &dupErr) {
			return fmt.Errorf("seed user %s: %w", su.Name, err)
		}
	}
	return nil
}
