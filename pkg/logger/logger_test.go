package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"bogus": zapcore.InfoLevel,
	}
	for name, want := range cases {
		for _, dev := range []bool{true, false} {
			log, err := New(name, dev)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(want), name)
			if want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(want-1), name)
			}
		}
	}
}
