package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DEBUG", "CORS_ORIGIN", "DATABASE_URL", "SESSION_TTL", "ADMIN_USERNAME", "ADMIN_PASSWORD", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.ServerPort)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Empty(t, cfg.AdminPassword)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "true")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("ADMIN_PASSWORD", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "s3cret", cfg.AdminPassword)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEBUG", "maybe")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("MAX_UPLOAD_MB", "-3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
}

func TestLoad_RejectsNonPositiveTTLAndCapsUpload(t *testing.T) {
	tests := []struct {
		name      string
		ttl       string
		uploadMB  string
		wantTTL   time.Duration
		wantBytes int64
	}{
		{"zero ttl", "0s", "5", 12 * time.Hour, 5 << 20},
		{"negative ttl", "-1h", "5", 12 * time.Hour, 5 << 20},
		{"huge upload is capped", "1h", "9223372036854775807", time.Hour, maxUploadMB << 20},
		{"upload at cap", "1h", "1024", time.Hour, 1024 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SESSION_TTL", tt.ttl)
			t.Setenv("MAX_UPLOAD_MB", tt.uploadMB)

			cfg, err := Load()
			require.NoError(t, err)

			assert.Equal(t, tt.wantTTL, cfg.SessionTTL)
			assert.Equal(t, tt.wantBytes, cfg.MaxUploadBytes)
			assert.Positive(t, cfg.MaxUploadBytes)
		})
	}
}
