package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "cascade", cfg.Database)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "cascade_test")
	t.Setenv("DB_PORT", "6543")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "cascade_test", cfg.Database)
	assert.Equal(t, 6543, cfg.Port)
}
