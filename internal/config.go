package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/platelog/internal/journal"
	"github.com/starford/platelog/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Sync   SyncConfig        `yaml:"sync"`
	Cache  CacheConfig       `yaml:"cache"`
	Photos PhotosConfig      `yaml:"photos"`
	Gate   GateConfig        `yaml:"gate"`
	Save   SaveConfig        `yaml:"save"`
	Awards AwardsConfig      `yaml:"awards"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.SQLite, &c.Sync, &c.Cache, &c.Photos, &c.Gate, &c.Save, &c.Auth,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds the record database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig holds the shared key-value database. An empty Path keeps the
// synchronized values in memory for the life of the process.
type SyncConfig struct {
	Path   string `yaml:"path"`
	Device string `yaml:"device"`
}

// Enabled reports whether a shared database is configured.
func (c *SyncConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Device, validation.When(c.Path != "", validation.Required)),
	)
}

// CacheConfig holds the local cache file, relative to the data directory.
type CacheConfig struct {
	File string `yaml:"file"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.File, validation.Required),
	)
}

// PhotosConfig holds the local data directory and the optional S3 mirror.
type PhotosConfig struct {
	Dir     string `yaml:"dir"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
	Uploads int    `yaml:"uploads"`
}

// RemoteEnabled reports whether photos are mirrored to S3.
func (c *PhotosConfig) RemoteEnabled() bool {
	return c.Bucket != ""
}

// Validate validates the photos configuration.
func (c *PhotosConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Region, validation.When(c.Bucket != "", validation.Required)),
		validation.Field(&c.Uploads, validation.Min(0), validation.Max(32)),
	)
}

// GateConfig holds the record-creation gate.
type GateConfig struct {
	FreeLimit int64 `yaml:"free_limit"`
	// Entitled grants unlimited records, standing in for a purchase.
	Entitled bool `yaml:"entitled"`
}

// Validate validates the gate configuration.
func (c *GateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FreeLimit, validation.Required, validation.Min(int64(1))),
	)
}

// SaveConfig holds the debounce delay for record edits.
type SaveConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// Validate validates the save configuration.
func (c *SaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Delay, validation.Required, validation.Min(100*time.Millisecond)),
	)
}

// AwardsConfig holds an optional catalog override. An empty path uses the
// bundled catalog.
type AwardsConfig struct {
	Catalog string `yaml:"catalog"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./platelog.db",
		},
		Sync: SyncConfig{
			Device: "local",
		},
		Cache: CacheConfig{
			File: "cache.yaml",
		},
		Photos: PhotosConfig{
			Dir:     "./data",
			Uploads: 2,
		},
		Gate: GateConfig{
			FreeLimit: journal.DefaultFreeLimit,
		},
		Save: SaveConfig{
			Delay: store.DefaultSaveDelay,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
