package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFreshDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")

	l, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, l.Count())
	assert.False(t, l.Contains("100"))
	assert.DirExists(t, dir)
}

func TestRecordAndResume(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.Record("100"))
	require.NoError(t, l.Record("200"))

	// A fresh Open simulates a restarted run.
	resumed, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, resumed.Count())
	assert.True(t, resumed.Contains("100"))
	assert.True(t, resumed.Contains("200"))
	assert.False(t, resumed.Contains("300"))
}

func TestRecordIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.Record("100"))
	require.NoError(t, l.Record("100"))

	assert.Equal(t, 1, l.Count())

	data, err := os.ReadFile(filepath.Join(dir, ProgressFileName))
	require.NoError(t, err)

	var pf struct {
		Downloaded []string `json:"downloaded"`
	}
	require.NoError(t, json.Unmarshal(data, &pf))
	assert.Equal(t, []string{"100"}, pf.Downloaded)
}

func TestRecordIgnoresEmptyID(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, l.Record(""))
	assert.Equal(t, 0, l.Count())
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProgressFileName), []byte("{not json"), 0644))

	_, err := Open(dir)
	assert.Error(t, err)
}

func TestOpenDeduplicatesExistingEntries(t *testing.T) {
	dir := t.TempDir()
	body := `{"downloaded": ["100", "100", "200"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProgressFileName), []byte(body), 0644))

	l, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Count())
}
