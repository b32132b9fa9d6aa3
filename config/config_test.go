package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, "stockpile", cfg.System.Appid)
	assert.Equal(t, 1816, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "stockpile.yml")
	content := `
system:
  appid: stockpile-test
  location: UTC
  workdir: /tmp/stockpile-test
web:
  host: 127.0.0.1
  port: 9999
  secret: file-secret
  jwt_expire: 15
database:
  type: postgres
  host: db.internal
  port: 5432
  name: stockpile
  user: app
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, "stockpile-test", cfg.System.Appid)
	assert.Equal(t, 9999, cfg.Web.Port)
	assert.Equal(t, "file-secret", cfg.Web.Secret)
	assert.Equal(t, 15, cfg.Web.JwtExpire)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("STOCKPILE_WEB_PORT", "2817")
	t.Setenv("STOCKPILE_DB_HOST", "pg.example.com")
	t.Setenv("STOCKPILE_SYSTEM_DEBUG", "false")

	cfg := LoadConfig("")
	assert.Equal(t, 2817, cfg.Web.Port)
	assert.Equal(t, "pg.example.com", cfg.Database.Host)
	assert.False(t, cfg.System.Debug)
}
