// Package auth stores the browser cookie bundles the archiver
// authenticates with. Bundles are saved under a label so several
// accounts can coexist, with the system keychain preferred and an
// encrypted file as fallback.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Session is one saved login: the cookie bundle copied out of a
// browser plus the profile it belongs to.
type Session struct {
	Label        string            `json:"label"`
	TargetUID    string            `json:"target_uid,omitempty"`
	Cookies      map[string]string `json:"cookies"`
	UserAgent    string            `json:"user_agent,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// XSRFToken returns the anti-forgery token cookie, if present.
func (s *Session) XSRFToken() string {
	return s.Cookies["XSRF-TOKEN"]
}

// CookieHeader renders the bundle as a Cookie header value with names
// sorted for stable output.
func (s *Session) CookieHeader() string {
	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.Cookies[name])
	}
	return strings.Join(pairs, "; ")
}

// ParseCookieHeader parses a raw "name=value; name2=value2" string as
// copied from browser devtools. Malformed fragments are dropped.
func ParseCookieHeader(raw string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}

// SessionStore is the storage backend interface for saved sessions.
type SessionStore interface {
	Store(session *Session) error
	Retrieve(label string) (*Session, error)
	List() ([]*Session, error)
	Delete(label string) error
	Exists(label string) bool
}

// Manager stores sessions across backends with fallback: keychain when
// available, then the encrypted file, then read-only environment
// variables.
type Manager struct {
	stores []SessionStore
}

// NewManager creates a session manager with the available backends.
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves a session using the first backend that accepts it.
func (m *Manager) Store(session *Session) error {
	if session.Label == "" {
		return errors.New("session label is required")
	}
	if len(session.Cookies) == 0 {
		return errors.New("session has no cookies")
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve gets a session from the first backend that has it.
func (m *Manager) Retrieve(label string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(label); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("session not found: %s", label)
}

// RetrieveDefault returns the environment session when set, otherwise
// the first saved session.
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if session, err := envStore.Retrieve(""); err == nil && session != nil {
			return session, nil
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		return sessions[0], nil
	}

	return nil, errors.New("no saved sessions found")
}

// List returns all saved sessions, newest version of each label.
func (m *Manager) List() ([]*Session, error) {
	sessionMap := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if existing, ok := sessionMap[session.Label]; !ok || session.LastModified.After(existing.LastModified) {
				sessionMap[session.Label] = session
			}
		}
	}

	var result []*Session
	for _, session := range sessionMap {
		result = append(result, session)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })

	return result, nil
}

// Delete removes a session from every backend that has it.
func (m *Manager) Delete(label string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(label); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("session not found: %s", label)
	}

	return nil
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "feedarchiver")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "feedarchiver")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "feedarchiver")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "feedarchiver")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// MaskCookies returns a copy with cookie values masked for display.
func MaskCookies(session *Session) *Session {
	if session == nil {
		return nil
	}

	masked := make(map[string]string, len(session.Cookies))
	for name, value := range session.Cookies {
		masked[name] = maskString(value)
	}

	return &Session{
		Label:        session.Label,
		TargetUID:    session.TargetUID,
		Cookies:      masked,
		UserAgent:    session.UserAgent,
		LastModified: session.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)
