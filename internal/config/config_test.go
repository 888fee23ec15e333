package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"10", 10 * time.Second},
		{"10s", 10 * time.Second},
		{"5m", 5 * time.Minute},
		{`"15s"`, 15 * time.Second},
		{"'2'", 2 * time.Second},
		{" 1h ", time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", `""`, "ten", "5 minutes"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TASKS_FILE", "")
	os.Unsetenv("TASKS_FILE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "data/tasks.json", cfg.Store.Path)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout.Duration())
	assert.Equal(t, 60*time.Second, cfg.HTTP.IdleTimeout.Duration())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TASKS_FILE", "/var/lib/todo/tasks.json")
	t.Setenv("HTTP_READ_TIMEOUT", "3")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:5500,http://127.0.0.1:5500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/todo/tasks.json", cfg.Store.Path)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout.Duration())
	assert.Equal(t, []string{"http://localhost:5500", "http://127.0.0.1:5500"}, cfg.HTTP.AllowOrigins)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_WRITE_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  path: /srv/tasks.json
http:
  port: "9000"
  read_timeout: 30s
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/tasks.json", cfg.Store.Path)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout.Duration())
	assert.Equal(t, "9100", cfg.HTTP.Port, "environment overrides the file")
}
