package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "pos")
	t.Setenv("DB_NAME", "pos")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("IDEMPOTENCY_TTL", "")
	t.Setenv("RECONCILE_INTERVAL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "")
	t.Setenv("DB_CONN_MAX_LIFETIME", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.Orders.IdempotencyTTL)
	assert.Equal(t, time.Minute, cfg.Worker.ReconcileInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, "migrations", cfg.DB.MigrationsPath)
}

func TestLoad_MemoryDriverSkipsDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("DB_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing db host", map[string]string{"DB_HOST": ""}},
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"bad ttl", map[string]string{"IDEMPOTENCY_TTL": "soon"}},
		{"negative interval", map[string]string{"RECONCILE_INTERVAL": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_CORSList(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
