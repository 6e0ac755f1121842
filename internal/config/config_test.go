package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/tutoring")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("JWT_TTL", "")
	t.Setenv("ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		dsn    string
		secret string
	}{
		{name: "no dsn", secret: "secret"},
		{name: "no jwt secret", dsn: "postgres://localhost/tutoring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DSN", tt.dsn)
			t.Setenv("JWT_SECRET", tt.secret)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadInvalidTTL(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/tutoring")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_TTL", "three days")

	_, err := Load()
	assert.Error(t, err)
}
