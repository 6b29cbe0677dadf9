package log_test

import (
	"bytes"
	"strings"
	"testing"

	"bennypowers.dev/templatetag/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(nil) })

	emit := func() string {
		buf.Reset()
		log.Debug("d-msg")
		log.Info("i-msg")
		log.Warn("w-msg")
		log.Error("e-msg")
		return buf.String()
	}

	tests := []struct {
		level log.Level
		shown []string
		quiet []string
	}{
		{level: log.LevelDebug, shown: []string{"d-msg", "i-msg", "w-msg", "e-msg"}},
		{level: log.LevelInfo, shown: []string{"i-msg", "w-msg", "e-msg"}, quiet: []string{"d-msg"}},
		{level: log.LevelWarn, shown: []string{"w-msg", "e-msg"}, quiet: []string{"d-msg", "i-msg"}},
		{level: log.LevelError, shown: []string{"e-msg"}, quiet: []string{"d-msg", "i-msg", "w-msg"}},
	}
	for _, tt := range tests {
		log.SetLevel(tt.level)
		output := emit()
		for _, msg := range tt.shown {
			assert.Contains(t, output, msg, "level %d", tt.level)
		}
		for _, msg := range tt.quiet {
			assert.NotContains(t, output, msg, "level %d", tt.level)
		}
	}

	log.SetOutput(nil)
	log.SetLevel(log.LevelDebug)
	assert.NotPanics(t, func() { log.Error("dropped") }, "a nil output drops messages")
}

func TestLogFormat(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel(log.LevelInfo)
	defer log.SetOutput(nil)

	t.Run("Messages include [TTT] prefix", func(t *testing.T) {
		buf.Reset()
		log.Info("test message")

		output := buf.String()
		assert.Contains(t, output, "[TTT]", "Should have [TTT] prefix")
		assert.Contains(t, output, "test message")
	})

	t.Run("Format strings work correctly", func(t *testing.T) {
		buf.Reset()
		log.Info("Transformed %s with %d templates", "app/components/hello.gjs", 2)

		assert.Contains(t, buf.String(), "Transformed app/components/hello.gjs with 2 templates")
	})

	t.Run("Each log message ends with newline", func(t *testing.T) {
		buf.Reset()
		log.Info("message 1")
		log.Info("message 2")

		lines := strings.Split(buf.String(), "\n")
		require.GreaterOrEqual(t, len(lines), 2)
		assert.Contains(t, lines[0], "message 1")
		assert.Contains(t, lines[1], "message 2")
	})

	t.Run("Messages include level labels", func(t *testing.T) {
		buf.Reset()
		log.SetLevel(log.LevelDebug)

		log.Debug("debug")
		log.Warn("warn")
		log.Error("error")

		output := buf.String()
		assert.Contains(t, output, "DBG")
		assert.Contains(t, output, "WRN")
		assert.Contains(t, output, "ERR")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    log.Level
		wantErr bool
	}{
		{name: "debug", want: log.LevelDebug},
		{name: "info", want: log.LevelInfo},
		{name: "", want: log.LevelInfo},
		{name: "warning", want: log.LevelWarn},
		{name: "error", want: log.LevelError},
		{name: "loud", want: log.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetLevel(t *testing.T) {
	originalLevel := log.GetLevel()
	defer log.SetLevel(originalLevel)

	log.SetLevel(log.LevelDebug)
	assert.Equal(t, log.LevelDebug, log.GetLevel())

	log.SetLevel(log.LevelError)
	assert.Equal(t, log.LevelError, log.GetLevel())
}
