package actorutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSlogLevel(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(slog.LevelDebug, slogLevel(zapcore.DebugLevel))
	assert.Equal(slog.LevelInfo, slogLevel(zapcore.InfoLevel))
	assert.Equal(slog.LevelWarn, slogLevel(zapcore.WarnLevel))
	assert.Equal(slog.LevelError, slogLevel(zapcore.ErrorLevel))
	assert.Equal(slog.LevelError, slogLevel(zapcore.FatalLevel))
}
