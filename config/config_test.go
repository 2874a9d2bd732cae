package config

import (
	"os"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	configContent := `
server:
  port: 9090
  redeem_rate_per_minute: 3
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "test-bucket"
  use_ssl: false
  expire_days: 14
storage:
  provider: "gcs"
  gcs:
    bucket: "contracts"
database:
  driver: "postgres"
  dsn: "postgres://u:p@localhost:5432/contracts?sslmode=disable"
redis:
  addr: "localhost:6379"
  field_cache_ttl_minutes: 5
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
editor:
  page_size: 2000
log:
  level: "debug"
  format: "json"
tracing:
  enabled: true
  sample_ratio: 0.25
cors:
  allowed_origins: ["https://app.example.com"]
users:
  - username: "testuser"
    password: "testpass"
    user_id: "u-1"
    memberships:
      - org: "acme"
        role: "owner"
      - org: "beta"
        role: "staff"
        level: 4
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.RedeemRatePerMinute != 3 {
		t.Errorf("Expected redeem rate 3, got %d", cfg.Server.RedeemRatePerMinute)
	}
	if cfg.Minio.ExpireDays != 14 {
		t.Errorf("Expected expire_days 14, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.Storage.Provider != StorageGCS || cfg.Storage.GCS.Bucket != "contracts" {
		t.Errorf("Expected gcs storage on bucket contracts, got %+v", cfg.Storage)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Redis.FieldCacheTTLMinutes != 5 {
		t.Errorf("Expected field cache ttl 5, got %d", cfg.Redis.FieldCacheTTLMinutes)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Editor.PageSize != 2000 {
		t.Errorf("Expected page_size 2000, got %d", cfg.Editor.PageSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Expected debug/json logging, got %+v", cfg.Log)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 0.25 {
		t.Errorf("Expected tracing enabled at 0.25, got %+v", cfg.Tracing)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("Expected 1 allowed origin, got %d", len(cfg.CORS.AllowedOrigins))
	}
	if len(cfg.Users) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(cfg.Users))
	}
	u := cfg.Users[0]
	if u.ID() != "u-1" || u.PrimaryOrg() != "acme" {
		t.Errorf("Unexpected user identity %s/%s", u.ID(), u.PrimaryOrg())
	}
	if m, ok := u.Membership("beta"); !ok || m.Level != 4 {
		t.Errorf("Expected staff level 4 in beta, got %+v", m)
	}
}

func TestLoadDefaults(t *testing.T) {
	configContent := `
minio:
  endpoint: "localhost:9000"
  access_key: "test"
  secret_key: "test"
  bucket: "bucket"
`
	cfg, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Minio.ExpireDays != 7 {
		t.Errorf("Expected default expire_days 7, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token_expire_hours 24, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Auth.AccessTokenExpireHours != 2 {
		t.Errorf("Expected default access_token_expire_hours 2, got %d", cfg.Auth.AccessTokenExpireHours)
	}
	if cfg.Editor.PageSize != 1500 {
		t.Errorf("Expected default page_size 1500, got %d", cfg.Editor.PageSize)
	}
	if cfg.Editor.MaxSessions != 200 {
		t.Errorf("Expected default max_sessions 200, got %d", cfg.Editor.MaxSessions)
	}
	if cfg.Storage.Provider != StorageMinio {
		t.Errorf("Expected default storage minio, got %s", cfg.Storage.Provider)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN == "" {
		t.Errorf("Expected default sqlite database, got %+v", cfg.Database)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default log format text, got %s", cfg.Log.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvJWTSecret, "from-env")
	t.Setenv(EnvDatabaseDSN, "file::memory:")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvMinioSecretKey, "env-minio")

	cfg, err := Load(writeConfig(t, "auth:\n  jwt_secret: from-file\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Expected env jwt secret, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Database.DSN != "file::memory:" {
		t.Errorf("Expected env dsn, got %s", cfg.Database.DSN)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Expected env redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Minio.SecretKey != "env-minio" {
		t.Errorf("Expected env minio secret, got %s", cfg.Minio.SecretKey)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown storage", "storage:\n  provider: ftp\n"},
		{"gcs without bucket", "storage:\n  provider: gcs\n"},
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"negative page size", "editor:\n  page_size: -1\n"},
		{"unknown role", "users:\n  - username: a\n    memberships:\n      - org: x\n        role: admin\n"},
		{"staff level out of range", "users:\n  - username: a\n    memberships:\n      - org: x\n        role: staff\n        level: 9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: yaml: content:"))
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "user1", Password: "pass1", UserID: "id-1"},
			{Username: "user2", Password: "pass2"},
		},
	}

	user := cfg.FindUser("user1")
	if user == nil {
		t.Fatal("Expected to find user1")
	}
	if user.Password != "pass1" {
		t.Errorf("Expected password pass1, got %s", user.Password)
	}

	if cfg.FindUserByID("id-1") != user {
		t.Error("Expected lookup by id to return user1")
	}
	if u := cfg.FindUserByID("user2"); u == nil || u.Username != "user2" {
		t.Error("Expected id to fall back to username")
	}

	if cfg.FindUser("nonexistent") != nil {
		t.Error("Expected nil for non-existent user")
	}
}
