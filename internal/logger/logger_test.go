package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFromEnv(t *testing.T) {
	prod := FromEnv("production", "", "")
	assert.Equal(t, Config{Encoding: "json", Level: "info"}, prod)

	dev := FromEnv("development", "warn", "")
	assert.True(t, dev.IsDevelopment)
	assert.Equal(t, "console", dev.Encoding)
	assert.Equal(t, "warn", dev.Level)
}

func TestNewHonoursLevel(t *testing.T) {
	log, err := New(Config{Encoding: "json", Level: "warn"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
