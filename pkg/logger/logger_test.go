package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zxoir/twitter-month-archiver/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		log, err := New(&config.LoggingConfig{Level: "info"})
		require.NoError(t, err)
		assert.NotNil(t, log)
		assert.NotNil(t, log.GetZerolog())
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(&config.LoggingConfig{Level: "shouting"})
		assert.Error(t, err)
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "xmonth.log")
		log, err := New(&config.LoggingConfig{Level: "info", File: path})
		require.NoError(t, err)

		log.Info("written to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "written to file")
	})
}

func TestWithFieldsChaining(t *testing.T) {
	log := NewTestLogger()

	log.WithField("a", 1).WithFields(map[string]interface{}{"b": 2}).Info("chained")

	messages := log.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "INFO", messages[0].Level)
	assert.Equal(t, "chained", messages[0].Message)
	assert.Equal(t, 1, messages[0].Fields["a"])
	assert.Equal(t, 2, messages[0].Fields["b"])
}

func TestGetLoggerFallback(t *testing.T) {
	globalLogger = nil
	log := GetLogger()
	assert.NotNil(t, log)

	// Subsequent calls reuse the same instance
	assert.Equal(t, log, GetLogger())
}
