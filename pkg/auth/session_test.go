package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(label string) *Session {
	return &Session{
		Label:     label,
		TargetUID: "1234567890",
		Cookies: map[string]string{
			"SUB":        "secret-sub-value",
			"XSRF-TOKEN": "token-value",
		},
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader("SUB=abc; XSRF-TOKEN=def; malformed; =novalue")

	assert.Equal(t, map[string]string{
		"SUB":        "abc",
		"XSRF-TOKEN": "def",
	}, cookies)
}

func TestCookieHeaderSortedOutput(t *testing.T) {
	s := testSession("main")

	assert.Equal(t, "SUB=secret-sub-value; XSRF-TOKEN=token-value", s.CookieHeader())
}

func TestXSRFToken(t *testing.T) {
	s := testSession("main")
	assert.Equal(t, "token-value", s.XSRFToken())

	empty := &Session{Cookies: map[string]string{}}
	assert.Empty(t, empty.XSRFToken())
}

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(testSession("main")))
	assert.Equal(t, 1, store.Count())

	session, err := manager.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", session.TargetUID)
	assert.False(t, session.LastModified.IsZero())
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Store(&Session{Cookies: map[string]string{"SUB": "x"}})
	assert.Error(t, err)

	err = manager.Store(&Session{Label: "main"})
	assert.Error(t, err)
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewMockManagerWithStores(failing, working)

	require.NoError(t, manager.Store(testSession("main")))
	assert.Equal(t, 0, failing.Count())
	assert.Equal(t, 1, working.Count())

	session, err := manager.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "main", session.Label)
}

func TestManagerDelete(t *testing.T) {
	manager, store := NewMockManager()
	require.NoError(t, manager.Store(testSession("main")))

	require.NoError(t, manager.Delete("main"))
	assert.Equal(t, 0, store.Count())

	assert.Error(t, manager.Delete("main"))
}

func TestMaskCookies(t *testing.T) {
	masked := MaskCookies(testSession("main"))

	assert.Equal(t, "secr...alue", masked.Cookies["SUB"])
	assert.Equal(t, "toke...alue", masked.Cookies["XSRF-TOKEN"])
	// The original must stay untouched.
	assert.Equal(t, "secret-sub-value", testSession("main").Cookies["SUB"])
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("FEEDARCHIVER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(testSession("main")))
	assert.True(t, store.Exists("main"))

	// A second store over the same file must decrypt what the first
	// one wrote.
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	session, err := reopened.Retrieve("main")
	require.NoError(t, err)
	assert.Equal(t, "secret-sub-value", session.Cookies["SUB"])

	sessions, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestEncryptedFileStoreDeleteRemovesFile(t *testing.T) {
	t.Setenv("FEEDARCHIVER_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "sessions.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(testSession("main")))
	require.NoError(t, store.Delete("main"))

	assert.False(t, store.Exists("main"))
	assert.NoFileExists(t, path)
}

func TestEnvironmentStoreRetrieve(t *testing.T) {
	t.Setenv("FEEDARCHIVER_COOKIES", "SUB=envsub; XSRF-TOKEN=envtoken")
	t.Setenv("FEEDARCHIVER_TARGET_UID", "42")

	store := NewEnvironmentStore()
	session, err := store.Retrieve("")
	require.NoError(t, err)

	assert.Equal(t, "default", session.Label)
	assert.Equal(t, "42", session.TargetUID)
	assert.Equal(t, "envsub", session.Cookies["SUB"])
	assert.True(t, store.Exists(""))
}

func TestEnvironmentStoreMissing(t *testing.T) {
	t.Setenv("FEEDARCHIVER_COOKIES", "")

	store := NewEnvironmentStore()
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, ErrStoreUnavailable, store.Store(testSession("x")))
}
