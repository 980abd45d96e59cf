package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "default config",
			config: nil,
		},
		{
			name: "custom json config",
			config: &Config{
				Level:  "debug",
				Format: "json",
			},
		},
		{
			name: "console config",
			config: &Config{
				Level:  "info",
				Format: "console",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.config)
			assert.NotNil(t, logger)
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	logger.Info("test message")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "test message", logEntry["message"])
	assert.NotEmpty(t, logEntry["time"])
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	childLogger := logger.With().
		Str("service", "tablescan").
		Int("port", 8080).
		Logger()

	childLogger.Info("server started")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "tablescan", logEntry["service"])
	assert.Equal(t, float64(8080), logEntry["port"])
	assert.Equal(t, "server started", logEntry["message"])
}

func TestLogger_ErrorWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "error",
		Format: "json",
		Output: buf,
	})

	testErr := errors.New("database connection failed")
	logger.ErrorWith("failed to connect", testErr, map[string]interface{}{
		"host": "localhost",
		"port": 5432,
	})

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "failed to connect", logEntry["message"])
	assert.Equal(t, "database connection failed", logEntry["error"])
	assert.Equal(t, "localhost", logEntry["host"])
	assert.Equal(t, float64(5432), logEntry["port"])
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	ctx := logger.WithContext(context.Background())
	retrievedLogger := FromContext(ctx)

	retrievedLogger.Info("from context")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "from context", logEntry["message"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool // should log or not
	}{
		{
			name:  "debug level logs debug",
			level: "debug",
			logFunc: func(l *Logger) {
				l.Debug("debug message")
			},
			expected: true,
		},
		{
			name:  "info level skips debug",
			level: "info",
			logFunc: func(l *Logger) {
				l.Debug("debug message")
			},
			expected: false,
		},
		{
			name:  "error level logs error",
			level: "error",
			logFunc: func(l *Logger) {
				l.Error("error message")
			},
			expected: true,
		},
		{
			name:  "error level skips info",
			level: "error",
			logFunc: func(l *Logger) {
				l.Info("info message")
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(&Config{
				Level:  tt.level,
				Format: "json",
				Output: buf,
			})

			tt.logFunc(logger)

			if tt.expected {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestLogger_ContextFallsBackToGlobal(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := global
	SetGlobal(New(&Config{Level: "info", Format: "json", Output: buf}))
	t.Cleanup(func() { SetGlobal(prev) })

	FromContext(context.Background()).Info("global")

	assert.Contains(t, buf.String(), `"message":"global"`)
}

func TestLogger_LevelIsPerLogger(t *testing.T) {
	debugBuf := &bytes.Buffer{}
	errorBuf := &bytes.Buffer{}
	debugLog := New(&Config{Level: "debug", Format: "json", Output: debugBuf})
	errorLog := New(&Config{Level: "error", Format: "json", Output: errorBuf})

	debugLog.Debug("visible")
	errorLog.Debug("hidden")

	assert.NotEmpty(t, debugBuf.String())
	assert.Empty(t, errorBuf.String())
}

func TestLogger_DebugWithAndWarnWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "debug", Format: "json", Output: buf})

	logger.DebugWith("probe failed", map[string]interface{}{"table": "orders"})
	logger.WarnWith("isolation not applied", errors.New("unsupported"), map[string]interface{}{"engine": "sqlite"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, "orders", first["table"])
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "unsupported", second["error"])
	assert.Equal(t, "sqlite", second["engine"])
}

func TestNop_DiscardsOutput(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().ErrorWith("nothing", errors.New("x"), nil)
	})
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"empty", "", ""},
		{"url", "postgres://scan:s3cret@db:5432/app", "postgres://scan:[REDACTED]@db:5432/app"},
		{"key value", "server=db;user id=sa;password=hunter2;database=app", "server=db;user id=sa;password=[REDACTED];database=app"},
		{"mysql", "root:pw@tcp(localhost:3306)/shop", "root:[REDACTED]@tcp(localhost:3306)/shop"},
		{"no secret", "file:catalog.db?mode=ro", "file:catalog.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactDSN(tt.dsn))
		})
	}
}

func BenchmarkLogger_Info(b *testing.B) {
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: io.Discard,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message")
	}
}

func BenchmarkLogger_WithFields(b *testing.B) {
	logger := New(&Config{
		Level:  "info",
		Format: "json",
		Output: io.Discard,
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.With().
			Str("service", "tablescan").
			Int("request_id", i).
			Logger().
			Info("benchmark message")
	}
}
