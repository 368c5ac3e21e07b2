package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	assert.Equal(t, log.ErrorLevel, Setup(log.ErrorLevel, false))
	assert.Equal(t, log.ErrorLevel, log.GetLevel())

	assert.Equal(t, log.DebugLevel, Setup(log.WarnLevel, true))
	assert.Equal(t, log.DebugLevel, New("test").GetLevel())
}

func TestNewWithConfig(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "server", log.InfoLevel, false, false, log.TextFormatter)

	l.Debug("hidden")
	l.Info("listening", "addr", ":8080")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "server")
	assert.Contains(t, out, "addr=:8080")
}
