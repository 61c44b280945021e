package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

func TestNew(t *testing.T) {
	for _, testCase := range []struct {
		level, format string
		enabled       zapcore.Level
		valid         bool
	}{
		{level: "info", format: "json", enabled: zapcore.InfoLevel, valid: true},
		{level: "DEBUG", format: "console", enabled: zapcore.DebugLevel, valid: true},
		{level: "warn", format: "", enabled: zapcore.WarnLevel, valid: true},
		{level: "loud", format: "json"},
		{level: "info", format: "xml"},
	} {
		l, err := New(testCase.level, testCase.format)
		if !testCase.valid {
			assert.True(t, errors.Is(err, customerrors.ErrConfiguration), "%s/%s: %v", testCase.level, testCase.format, err)
			continue
		}
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(testCase.enabled))
		assert.False(t, l.Core().Enabled(testCase.enabled-1))
	}
}
