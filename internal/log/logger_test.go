package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := map[string]struct {
		debug bool
		info  bool
	}{
		"prod": {debug: false, info: true},
		"test": {debug: false, info: false},
		"dev":  {debug: true, info: true},
	}
	for env, want := range cases {
		logger, err := NewLogger(env)
		require.NoError(t, err, env)
		assert.Equal(t, want.debug, logger.Core().Enabled(zap.DebugLevel), env)
		assert.Equal(t, want.info, logger.Core().Enabled(zap.InfoLevel), env)
		assert.True(t, logger.Core().Enabled(zap.WarnLevel), env)
	}
}

func TestNewSugar(t *testing.T) {
	sugar, err := NewSugar("test")
	require.NoError(t, err)
	sugar.Infow("discarded below warn", "key", "value")
}
