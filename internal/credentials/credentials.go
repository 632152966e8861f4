// Package credentials provides secure storage and retrieval of the
// Google OAuth tokens using the OS-native keyring, with fallback to
// environment variables.
package credentials

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// Service is the keyring service name all accounts are stored under.
const Service = "taskdeck"

// Keyring accounts
const (
	accountAccessToken  = "google_access_token"
	accountRefreshToken = "google_refresh_token"
)

// Environment overrides, checked before the keyring
const (
	envAccessToken  = "TASKDECK_GOOGLE_ACCESS_TOKEN"
	envRefreshToken = "TASKDECK_GOOGLE_REFRESH_TOKEN"
)

// Source indicates where credentials were retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// ErrNotFound is returned when no token is stored anywhere.
var ErrNotFound = errors.New("no stored credentials")

// Token is a stored OAuth token pair.
type Token struct {
	AccessToken  string
	RefreshToken string
	Source       Source
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// systemKeyring backs Keyring with the OS keyring.
type systemKeyring struct{}

func (systemKeyring) Set(service, account, password string) error {
	return keyring.Set(service, account, password)
}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (systemKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// Manager handles credential operations
type Manager struct {
	keyring  Keyring
	endpoint *oauth2.Endpoint // nil means Google's endpoint
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) { m.keyring = k }
}

// NewManager creates a Manager backed by the OS keyring unless
// overridden.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{keyring: systemKeyring{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns the stored token pair. Environment variables win over
// the keyring so scripted and CI use never touches the OS keyring.
func (m *Manager) Token() (*Token, error) {
	if access := os.Getenv(envAccessToken); access != "" {
		return &Token{
			AccessToken:  access,
			RefreshToken: os.Getenv(envRefreshToken),
			Source:       SourceEnvironment,
		}, nil
	}

	access, err := m.keyring.Get(Service, accountAccessToken)
	if err != nil || access == "" {
		return nil, ErrNotFound
	}
	// A missing refresh token is fine; the access token just expires.
	refresh, _ := m.keyring.Get(Service, accountRefreshToken)

	return &Token{
		AccessToken:  access,
		RefreshToken: refresh,
		Source:       SourceKeyring,
	}, nil
}

// Store saves a token pair to the keyring.
func (m *Manager) Store(tok *Token) error {
	if err := m.keyring.Set(Service, accountAccessToken, tok.AccessToken); err != nil {
		return err
	}
	if tok.RefreshToken != "" {
		return m.keyring.Set(Service, accountRefreshToken, tok.RefreshToken)
	}
	return nil
}

// Clear removes all stored tokens from the keyring.
func (m *Manager) Clear() error {
	err := m.keyring.Delete(Service, accountAccessToken)
	if rerr := m.keyring.Delete(Service, accountRefreshToken); err == nil {
		err = rerr
	}
	return err
}
