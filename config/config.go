package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Minio    MinioConfig    `yaml:"minio"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Editor   EditorConfig   `yaml:"editor"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
	CORS     CORSConfig     `yaml:"cors"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// MaxUploadMB limits contract file uploads.
	MaxUploadMB int `yaml:"max_upload_mb"`
	// RedeemRatePerMinute limits access-code redemption attempts per client IP.
	RedeemRatePerMinute int `yaml:"redeem_rate_per_minute"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
	// PublicURL overrides the scheme://endpoint prefix of published file URLs.
	PublicURL string `yaml:"public_url"`
}

// Storage providers.
const (
	StorageMinio  = "minio"
	StorageGCS    = "gcs"
	StorageMemory = "memory"
)

type StorageConfig struct {
	Provider string    `yaml:"provider"`
	GCS      GCSConfig `yaml:"gcs"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	// Endpoint points the client at an emulator.
	Endpoint string `yaml:"endpoint"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres, sqlite
	DSN    string `yaml:"dsn"`
}

// RedisConfig configures the PDF field-list cache. An empty Addr keeps the cache in memory.
type RedisConfig struct {
	Addr                 string `yaml:"addr"`
	Password             string `yaml:"password"`
	DB                   int    `yaml:"db"`
	FieldCacheTTLMinutes int    `yaml:"field_cache_ttl_minutes"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
	// AccessTokenExpireHours bounds view tokens issued for redeemed access codes.
	AccessTokenExpireHours int `yaml:"access_token_expire_hours"`
}

type EditorConfig struct {
	// PageSize is shared by the read and edit views.
	PageSize    int `yaml:"page_size"`
	MaxSessions int `yaml:"max_sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type User struct {
	Username    string       `yaml:"username"`
	Password    string       `yaml:"password"`
	UserID      string       `yaml:"user_id"`
	Memberships []Membership `yaml:"memberships"`
}

// Membership places a user in an organization. Role is owner or staff; Level
// applies to staff (1..5).
type Membership struct {
	Org   string `yaml:"org"`
	Role  string `yaml:"role"`
	Level int    `yaml:"level"`
}

var GlobalConfig *Config

// Environment overrides applied after the file is parsed.
const (
	EnvJWTSecret      = "CONTRACTS_JWT_SECRET"
	EnvDatabaseDSN    = "CONTRACTS_DATABASE_DSN"
	EnvRedisAddr      = "CONTRACTS_REDIS_ADDR"
	EnvMinioSecretKey = "CONTRACTS_MINIO_SECRET_KEY"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}
	if c.Server.RedeemRatePerMinute == 0 {
		c.Server.RedeemRatePerMinute = 10
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageMinio
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "contracts.db?_busy_timeout=5000"
	}
	if c.Redis.FieldCacheTTLMinutes == 0 {
		c.Redis.FieldCacheTTLMinutes = 60
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Auth.AccessTokenExpireHours == 0 {
		c.Auth.AccessTokenExpireHours = 2
	}
	if c.Editor.PageSize == 0 {
		c.Editor.PageSize = 1500
	}
	if c.Editor.MaxSessions == 0 {
		c.Editor.MaxSessions = 200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "contract-forms"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvMinioSecretKey); v != "" {
		c.Minio.SecretKey = v
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Editor.PageSize < 0 {
		return fmt.Errorf("editor.page_size must be positive, got %d", c.Editor.PageSize)
	}
	switch c.Storage.Provider {
	case StorageMinio, StorageGCS, StorageMemory:
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	if c.Storage.Provider == StorageGCS && c.Storage.GCS.Bucket == "" {
		return fmt.Errorf("storage.gcs.bucket is required for the gcs provider")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	for _, u := range c.Users {
		for _, m := range u.Memberships {
			role := strings.ToLower(m.Role)
			if role != "owner" && role != "staff" {
				return fmt.Errorf("user %s: unknown role %q in org %s", u.Username, m.Role, m.Org)
			}
			if role == "staff" && (m.Level < 1 || m.Level > 5) {
				return fmt.Errorf("user %s: staff level %d in org %s is outside 1..5", u.Username, m.Level, m.Org)
			}
		}
	}
	return nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}

// FindUserByID finds a user by stable user id
func (c *Config) FindUserByID(userID string) *User {
	for i := range c.Users {
		if c.Users[i].ID() == userID {
			return &c.Users[i]
		}
	}
	return nil
}

// ID returns the stable user id, falling back to the username.
func (u *User) ID() string {
	if u.UserID != "" {
		return u.UserID
	}
	return u.Username
}

// PrimaryOrg returns the first organization the user belongs to.
func (u *User) PrimaryOrg() string {
	if len(u.Memberships) == 0 {
		return ""
	}
	return u.Memberships[0].Org
}

// Membership returns the user's membership in org.
func (u *User) Membership(org string) (Membership, bool) {
	for _, m := range u.Memberships {
		if m.Org == org {
			return m, true
		}
	}
	return Membership{}, false
}
