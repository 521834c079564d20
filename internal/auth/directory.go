package auth

import (
	"fmt"
	"sync"

	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/config"
)

// Directory holds the operator accounts allowed to use the API.
//
// All public methods are thread-safe.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User

	// dummyHash is verified against when the username is unknown so that
	// failed logins take the same time either way.
	dummyHash string
}

// NewDirectory builds a directory from configured accounts. Plaintext
// passwords are hashed here and then dropped.
func NewDirectory(admins []config.AdminConfig) (*Directory, error) {
	dummy, err := HashPassword("labpanel-timing-equaliser")
	if err != nil {
		return nil, err
	}

	d := &Directory{users: make(map[string]*User), dummyHash: dummy}
	for _, a := range admins {
		role := Role(a.Role)
		if role == "" {
			role = RoleAdmin
		}
		if err := d.Add(a.Username, a.Password, a.PasswordHash, role); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers an account. passwordHash wins over password when both are set.
func (d *Directory) Add(username, password, passwordHash string, role Role) error {
	if !IsValidUsername(username) {
		return fmt.Errorf("invalid username %q", username)
	}
	if !IsValidRole(role) {
		return fmt.Errorf("invalid role %q for %s", role, username)
	}

	hash := passwordHash
	if hash == "" {
		var err error
		if hash, err = HashPassword(password); err != nil {
			return fmt.Errorf("hashing password for %s: %w", username, err)
		}
	} else if !IsPasswordHash(hash) {
		return fmt.Errorf("password_hash for %s is not an argon2id PHC string", username)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.users[username]; exists {
		return fmt.Errorf("%w: %s", ErrUsernameExists, username)
	}
	d.users[username] = &User{
		ID:           "usr-" + username,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	return nil
}

// Authenticate verifies a username and password. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (d *Directory) Authenticate(username, password string) (*User, error) {
	d.mu.RLock()
	u, ok := d.users[username]
	d.mu.RUnlock()

	if !ok {
		VerifyPassword(password, d.dummyHash) //nolint:errcheck // timing only
		return nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	out := *u
	return &out, nil
}

// Lookup returns a copy of the account with the given username.
func (d *Directory) Lookup(username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// Count returns the number of accounts.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
