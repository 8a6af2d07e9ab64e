// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fenlock-io/pagecheck/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer so tests can capture
// the console core without touching process streams.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func initWithBuffer(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf syncBuffer
	Initialize(cfg, zapcore.Lock(&buf))
	return &buf
}

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes the level", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "pagecheck-test",
			Colors:      config.ColorConfig{Info: "green"},
		})

		GetLogger().Info("the simulation page loaded")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "the simulation page loaded")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "pagecheck-json",
		})

		GetLogger().Warn("screenshot retried", zap.String("path", "verification.png"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "pagecheck-json", entry["logger"])
		assert.Equal(t, "screenshot retried", entry["msg"])
		assert.Equal(t, "verification.png", entry["path"])
	})

	t.Run("log file receives a json copy", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "pagecheck.log")
		initWithBuffer(t, config.LoggerConfig{
			Level:   "debug",
			Format:  "console",
			LogFile: logFile,
			MaxSize: 1,
		})

		GetLogger().Error("browser launch failed")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "browser launch failed")
	})

	t.Run("initialization happens once", func(t *testing.T) {
		buf := initWithBuffer(t, config.LoggerConfig{Level: "info", Format: "console", ServiceName: "first"})
		Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "second"}, zapcore.Lock(&syncBuffer{}))

		GetLogger().Info("still the first logger")
		assert.True(t, strings.Contains(buf.String(), "first"))
		assert.False(t, strings.Contains(buf.String(), "second"))
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("falls back before initialization", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		logger := GetLogger()
		require.NotNil(t, logger)
	})

	t.Run("returns the stored logger after initialization", func(t *testing.T) {
		initWithBuffer(t, config.LoggerConfig{Level: "info", Format: "console", ServiceName: "stored"})
		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}
