package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DSN", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite:books.db", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.True(t, cfg.HTTP.EnableSetupEndpoint)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	p := filepath.Join(dir, "config.yaml")
	yml := `
server:
  addr: ":9090"
database:
  dsn: "postgres://u:p@db:5432/books"
  query_timeout: 3s
logging:
  level: debug
http:
  cors_allowed_origins: ["https://a.example"]
  enable_setup_endpoint: false
`
	require.NoError(t, os.WriteFile(p, []byte(yml), 0o644))
	t.Setenv("APP_ADDR", ":7070")
	t.Setenv("DB_DSN", "")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "postgres://u:p@db:5432/books", cfg.Database.DSN)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://a.example"}, cfg.HTTP.CORSAllowedOrigins)
	assert.False(t, cfg.HTTP.EnableSetupEndpoint)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DSN", "sqlite::memory:")
	t.Setenv("DB_MAX_CONNS", "3")
	t.Setenv("DB_QUERY_TIMEOUT", "750ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ENABLE_SETUP_ENDPOINT", "false")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite::memory:", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Database.MaxConns)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.QueryTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.HTTP.TrustedProxies)
	assert.False(t, cfg.HTTP.EnableSetupEndpoint)
}

func TestLoad_InvalidEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_QUERY_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_QUERY_TIMEOUT")
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("DB_DSN=from_file\n"), 0o644))
	chdir(t, tmp)
	t.Setenv("DB_DSN", "from_env")

	LoadEnvFiles()

	assert.Equal(t, "from_env", os.Getenv("DB_DSN"))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.DSN = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
	assert.Contains(t, err.Error(), "logging.level")
}
