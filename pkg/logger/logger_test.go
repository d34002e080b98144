package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/grupoandino/stock-engine/pkg/config"
	"github.com/grupoandino/stock-engine/pkg/logger"
)

func TestNew_NivelDesdeConfig(t *testing.T) {
	l := logger.New(config.AppConfig{Env: "production", Name: "stock-engine", LogLevel: "debug"})
	assert.Equal(t, zerolog.DebugLevel, l.Zerolog().GetLevel())

	// Nivel desconocido cae a info.
	l = logger.New(config.AppConfig{Env: "production", Name: "stock-engine", LogLevel: "ruidoso"})
	assert.Equal(t, zerolog.InfoLevel, l.Zerolog().GetLevel())
}

func TestComponent_EtiquetaLosRegistros(t *testing.T) {
	l := logger.New(config.AppConfig{Env: "production", Name: "stock-engine", LogLevel: "info"})

	var buf bytes.Buffer
	sub := l.Component("audit").Output(&buf)
	sub.Info().Msg("evento")

	out := buf.String()
	assert.True(t, strings.Contains(out, `"component":"audit"`), out)
	assert.True(t, strings.Contains(out, `"service":"stock-engine"`), out)
}
