package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlekbai/report_executor/internal/config"
)

func TestNew(t *testing.T) {
	l, err := New(&config.Config{LogLevel: "warn", Environment: "production"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))

	l, err = New(&config.Config{LogLevel: "debug", Environment: "development"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&config.Config{LogLevel: "loud"})
	assert.ErrorContains(t, err, "LOG_LEVEL")
}
