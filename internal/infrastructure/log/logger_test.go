package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitDefault(t *testing.T) {
	assert.NoError(t, InitDefault())
	Default().Error("test init default")
}

func TestLogger_With(t *testing.T) {
	l := Default()

	l1 := l.With(zap.String("sensor", "left_top"))
	l1.Info("test logger 1")

	l2 := l.Named("alert_supervisor").WithString("sensor", "beer")
	l2.Info("test logger 2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG").Level())
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn ").Level())
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose").Level())
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}
