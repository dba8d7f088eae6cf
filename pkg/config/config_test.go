package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 72*time.Hour, cfg.Complaints.OverdueAfter)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, cfg.Uploads.AllowedMIMEs)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "fixify-images")
	t.Setenv("COMPLAINT_OVERDUE_AFTER", "48h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverS3, cfg.Storage.Driver)
	assert.Equal(t, "fixify-images", cfg.Storage.S3.Bucket)
	assert.Equal(t, 48*time.Hour, cfg.Complaints.OverdueAfter)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsS3WithoutBucket(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Host: "db", Name: "fixify"},
		Storage:  StorageConfig{Driver: StorageDriverS3},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDevSecretsInProduction(t *testing.T) {
	cfg := &Config{
		Env:      EnvProduction,
		Database: DatabaseConfig{Host: "db", Name: "fixify"},
		Storage:  StorageConfig{Driver: StorageDriverLocal},
		JWT:      JWTConfig{Secret: "dev_secret"},
	}
	assert.Error(t, cfg.Validate())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
