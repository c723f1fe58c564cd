package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []float64{10, 15, 20}, cfg.Simulation.DefaultStops)
	assert.Equal(t, []string{"spot", "linear", "inverse"}, cfg.Exchange.TickerCategories)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
exchange:
  rest_endpoint: http://localhost:9999
  timeout_ms: 2500
server:
  port: 9090
logging:
  level: debug
simulation:
  default_stops: [5, 7.5]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.Exchange.RESTEndpoint)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []float64{5, 7.5}, cfg.Simulation.DefaultStops)
	// untouched keys keep their defaults
	assert.Equal(t, "linear", cfg.Simulation.DefaultCategory)
}

func TestLoad_PortFromEnv(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)

	t.Setenv("PORT", "abc")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsNegativeStop(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  default_stops: [10, -1]\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
