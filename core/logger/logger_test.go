package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFreshLogger(t *testing.T) {
	t.Helper()

	prev := globalLogger
	globalLogger = newColoredLogger()
	SetColor(false)
	t.Cleanup(func() { globalLogger = prev })
}

func TestDebugNeedsVerbose(t *testing.T) {
	withFreshLogger(t)

	var buf bytes.Buffer
	SetWriterForAll(&buf)

	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "DEBUG shown 2")
}

func TestLevelsAndAddWriter(t *testing.T) {
	withFreshLogger(t)

	var primary, extra bytes.Buffer
	SetWriterForAll(&primary)
	AddWriter(WARN, &extra)

	Info("info line")
	Warn("warn line")
	GetLogFromLevel(ERROR)("error line")

	assert.Contains(t, primary.String(), "INFO  info line")
	assert.Contains(t, primary.String(), "WARN  warn line")
	assert.Contains(t, primary.String(), "ERROR error line")
	assert.Equal(t, 1, strings.Count(extra.String(), "\n"))
	assert.Contains(t, extra.String(), "warn line")
}

func TestPlainWriterHasNoColor(t *testing.T) {
	withFreshLogger(t)
	SetColor(true)
	t.Cleanup(func() { SetColor(false) })

	var console, file bytes.Buffer
	SetWriterForAll(&console)
	AddPlainWriterForAll(&file)

	Info("hello")

	require.Contains(t, file.String(), "INFO  hello")
	assert.NotContains(t, file.String(), "\x1b[")
}

func TestFatalExits(t *testing.T) {
	withFreshLogger(t)

	var buf bytes.Buffer
	SetWriterForAll(&buf)
	code := -1
	globalLogger.exit = func(c int) { code = c }

	Fatal("bye")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "FATAL bye")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
