// Package auth holds the demo user directory and bearer token handling.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role names the kind of portal user.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownUser        = errors.New("unknown user")
)

// User is a portal account. The password hash never leaves the directory.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`
}

// Directory resolves portal users.
type Directory interface {
	Authenticate(email, password string) (User, error)
	Lookup(id uuid.UUID) (User, error)
}

type account struct {
	User
	hash []byte
}

// MemoryDirectory is an in-memory Directory.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[uuid.UUID]*account
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byEmail: map[string]*account{},
		byID:    map[uuid.UUID]*account{},
	}
}

// Add hashes password with bcrypt and stores the user.
// Emails are matched case-insensitively.
func (d *MemoryDirectory) Add(u User, password string, cost int) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password for %s: %w", u.Email, err)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byEmail[u.Email]; exists {
		return User{}, fmt.Errorf("user %s already exists", u.Email)
	}
	acc := &account{User: u, hash: hash}
	d.byEmail[u.Email] = acc
	d.byID[u.ID] = acc
	return u, nil
}

func (d *MemoryDirectory) Authenticate(email, password string) (User, error) {
	d.mu.RLock()
	acc, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return acc.User, nil
}

func (d *MemoryDirectory) Lookup(id uuid.UUID) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.byID[id]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return acc.User, nil
}

// DemoAccount is a seeded login.
type DemoAccount struct {
	User
	Password string
}

// DemoAccounts are the logins seeded by NewDemoDirectory.
var DemoAccounts = []DemoAccount{
	{User: User{Email: "admin@posadmin.local", Name: "Portal Admin", Role: RoleAdmin}, Password: "admin123"},
	{User: User{Email: "distributor@posadmin.local", Name: "Demo Distributor", Role: RoleDistributor}, Password: "distributor123"},
	{User: User{Email: "retailer@posadmin.local", Name: "Demo Retailer", Role: RoleRetailer}, Password: "retailer123"},
}

// NewDemoDirectory returns a directory holding DemoAccounts.
func NewDemoDirectory(cost int) (*MemoryDirectory, error) {
	d := NewMemoryDirectory()
	for _, a := range DemoAccounts {
		if _, err := d.Add(a.User, a.Password, cost); err != nil {
			return nil, err
		}
	}
	return d, nil
}
