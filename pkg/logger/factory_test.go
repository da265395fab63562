package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Run("creates JSON logger by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		require.NotNil(t, log)
		log.Info("hello")
		var entry map[string]any
		err := json.Unmarshal(buf.Bytes(), &entry)
		require.NoError(t, err)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format option", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithFormat(logger.FormatText),
		)
		log.Info("hello")
		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "hello")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		assert.Panics(t, func() {
			logger.New(logger.WithFormat(logger.Format("yaml")))
		})
	})

	t.Run("includes static attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithAttr(slog.String("svc", "authcore")),
		)
		log.Info("hello")
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "authcore", entry["svc"])
	})

	t.Run("level filters records", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithLevel(slog.LevelWarn),
		)
		log.Info("dropped")
		assert.Zero(t, buf.Len())
		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("development preset", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithDevelopment("authcore"),
		)
		log.Debug("verbose")
		out := buf.String()
		assert.Contains(t, out, "verbose")
		assert.Contains(t, out, "development")
	})
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	log := logger.Discard()
	require.NotNil(t, log)
	// Must not panic and must not write anywhere observable.
	log.Error("dropped", logger.Error(errors.New("boom")))
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	t.Run("error attr", func(t *testing.T) {
		t.Parallel()
		err := errors.New("boom")
		attr := logger.Error(err)
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, logger.Error(nil), slog.Attr{})
	})

	t.Run("uid attr skips nil", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.UID(nil))
		assert.Equal(t, "uid", logger.UID("00f0").Key)
	})

	t.Run("token id attr skips empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.TokenID(""))
		assert.Equal(t, "token_id", logger.TokenID("abcd").Key)
	})

	t.Run("errors groups non-nil", func(t *testing.T) {
		t.Parallel()
		attr := logger.Errors(nil, errors.New("one"), nil)
		assert.Equal(t, "errors", attr.Key)
		assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
	})
}
