package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedarchiver/pkg/config"
)

func TestNew(t *testing.T) {
	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "warning", "error", "disabled"} {
			l, err := New(&config.LoggingConfig{Level: level})
			require.NoError(t, err, "level %s", level)
			require.NotNil(t, l)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(&config.LoggingConfig{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestWithFieldsReturnsDerivedLogger(t *testing.T) {
	l, err := New(&config.LoggingConfig{Level: "info"})
	require.NoError(t, err)

	derived := l.WithField("item_id", "abc123").WithFields(map[string]interface{}{"page": 2})
	assert.NotNil(t, derived)
	assert.NotSame(t, l, derived)

	base := l.(*zerologLogger)
	assert.Empty(t, base.fields, "parent logger must not accumulate fields")
}

func TestWithErrorNil(t *testing.T) {
	l, err := New(&config.LoggingConfig{Level: "info"})
	require.NoError(t, err)
	assert.Same(t, l, l.WithError(nil))
}

func TestGetLoggerDefault(t *testing.T) {
	globalLogger = nil
	l := GetLogger()
	require.NotNil(t, l)
	assert.Same(t, l, GetLogger())
}
