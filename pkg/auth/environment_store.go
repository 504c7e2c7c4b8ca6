package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads a session from environment variables, mainly
// for CI and one-off runs. FEEDARCHIVER_COOKIES holds the raw Cookie
// header copied from browser devtools.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(label string) (*Session, error) {
	raw := os.Getenv("FEEDARCHIVER_COOKIES")
	if raw == "" {
		return nil, ErrSessionNotFound
	}

	cookies := ParseCookieHeader(raw)
	if len(cookies) == 0 {
		return nil, ErrSessionNotFound
	}

	if label == "" {
		label = "default"
	}

	return &Session{
		Label:        label,
		TargetUID:    os.Getenv("FEEDARCHIVER_TARGET_UID"),
		Cookies:      cookies,
		UserAgent:    os.Getenv("FEEDARCHIVER_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(label string) bool {
	return os.Getenv("FEEDARCHIVER_COOKIES") != ""
}
