package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("CONFIG_FILE", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auragold.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: pg.internal
  name: auragold
  port: 6543
http:
  port: "9000"
  jwt_secret_key: from-file
monitor:
  interval: 30s
  outbox_batch: 5
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("MONITOR_INTERVAL", "90")
	t.Setenv("DB_REPLICA_DSNS", "host=r1 ; host=r2;")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"host=r1", "host=r2"}, cfg.Database.Replicas)
	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, "from-env", cfg.HTTP.JWTSecret)
	assert.Equal(t, 90*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 5, cfg.Monitor.OutboxBatch)
	assert.Equal(t, 60, cfg.HTTP.RateLimitMax)
	assert.Contains(t, cfg.Database.DSN(), "host=pg.internal")
	assert.Contains(t, cfg.Database.DSN(), "port=6543")
}

func TestDatabaseURLWins(t *testing.T) {
	d := Database{URL: "postgres://u:p@h/db", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@h/db", d.DSN())
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("X_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, envDuration("X_DURATION", time.Second))
	t.Setenv("X_DURATION", "garbage")
	assert.Equal(t, time.Second, envDuration("X_DURATION", time.Second))
}
