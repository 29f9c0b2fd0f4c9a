// Package sysdb implements the system database: the user/password store
// that backs the AUTH family of commands (adduser, deluser, listuser,
// login, whoami), grounded on original_source/server/src/auth/mod.rs and
// original_source/server/src/auth/provider.rs. Passwords are hashed with
// bcrypt (golang.org/x/crypto/bcrypt) rather than the original's raw
// high-entropy key scheme, since the distilled spec models AUTH as
// conventional username/password rather than key-claim/regenerate.
package sysdb

import (
	"sync"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// RootUsername is the reserved superuser account, always present once the
// system database is initialized (spec §5: "root is privileged to run any
// SYSCTL or DDL statement").
const RootUsername = "root"

// SysDB holds every user's bcrypt password hash behind a single RWMutex.
// The teacher's in-memory metadata structures (pkg/storage.TableMetaData)
// likewise guard a plain map with one lock rather than sharding, since the
// user set is small and writes are rare.
type SysDB struct {
	mu    sync.RWMutex
	users map[string][]byte // username -> bcrypt hash
}

// New returns an uninitialized system database with no users.
func New() *SysDB {
	return &SysDB{users: make(map[string][]byte)}
}

// IsInitialized reports whether the root account has been provisioned.
func (s *SysDB) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[RootUsername]
	return ok
}

// InitRoot provisions the root account with the given password. Calling it
// twice is an error; use ChangePassword to rotate the root password.
func (s *SysDB) InitRoot(password string) error {
	return s.addUserLocked(RootUsername, password, true)
}

// AddUser creates a new non-root user.
func (s *SysDB) AddUser(username, password string) error {
	if username == RootUsername {
		return &schemaerrors.UserAlreadyExistsError{Name: username}
	}
	return s.addUserLocked(username, password, false)
}

func (s *SysDB) addUserLocked(username, password string, allowReserved bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return &schemaerrors.UserAlreadyExistsError{Name: username}
	}
	s.users[username] = hash
	return nil
}

// DelUser removes a user. Deleting root is never permitted.
func (s *SysDB) DelUser(username string) error {
	if username == RootUsername {
		return &schemaerrors.PermissionDeniedError{Reason: "the root account cannot be deleted"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; !exists {
		return &schemaerrors.UserNotFoundError{Name: username}
	}
	delete(s.users, username)
	return nil
}

// ListUsers returns every username, root included.
func (s *SysDB) ListUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for name := range s.users {
		out = append(out, name)
	}
	return out
}

// ChangePassword re-hashes and stores a new password for an existing user.
func (s *SysDB) ChangePassword(username, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; !exists {
		return &schemaerrors.UserNotFoundError{Name: username}
	}
	s.users[username] = hash
	return nil
}

// Verify checks a username/password pair in constant time via bcrypt,
// returning InvalidCredentialsError for both an unknown user and a wrong
// password so a caller cannot distinguish the two from the error alone.
func (s *SysDB) Verify(username, password string) error {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		// still run bcrypt's comparison against a fixed dummy hash so the
		// timing profile for an unknown user matches a wrong password.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return &schemaerrors.InvalidCredentialsError{}
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return &schemaerrors.InvalidCredentialsError{}
	}
	return nil
}

// Exists reports whether a username is registered.
func (s *SysDB) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("constant-time-padding"), bcrypt.DefaultCost)
