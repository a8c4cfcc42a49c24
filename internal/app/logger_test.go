package app_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invoiceflow/invoiceflow/internal/app"
	_ "github.com/invoiceflow/invoiceflow/testing"
)

func TestNewLoggerHonorsLevel(t *testing.T) {
	quiet := app.NewLogger(&app.Config{LogLevel: "error"})
	assert.False(t, quiet.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, quiet.Enabled(t.Context(), slog.LevelError))

	verbose := app.NewLogger(&app.Config{LogLevel: "debug", LogFormat: "json"})
	assert.True(t, verbose.Enabled(t.Context(), slog.LevelDebug))

	fallback := app.NewLogger(nil)
	assert.True(t, fallback.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, fallback.Enabled(t.Context(), slog.LevelDebug))
}
