package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Database.DSN = "postgres://bot:hunter2@db:5432/p2p"
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.AccessKey = "AKIAEXAMPLE"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-secret"

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Database.DSN)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.AccessKey)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Server.APIKey)

	// Non-sensitive fields and the original are left alone.
	assert.Equal(t, cfg.Mode, out.Mode)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestRedactedConfigSkipsEmptyFields(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = ""

	out := RedactedConfig(&cfg)
	assert.Empty(t, out.Server.APIKey)
}
