package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/pathguard"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Scan    ScanConfig        `yaml:"scan"`
	Archive ArchiveConfig     `yaml:"archive"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Scan.Validate(); err != nil {
		return err
	}
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// VaultConfig holds the path to the Markdown vault directory, the
// folders relocations must never touch, and the file extensions
// treated as documents rather than folders.
type VaultConfig struct {
	Path              string   `yaml:"path"`
	ProtectedDirs     []string `yaml:"protected_dirs"`
	ContentExtensions []string `yaml:"content_extensions"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if len(c.ProtectedDirs) == 0 {
		c.ProtectedDirs = pathguard.DefaultProtectedDirs
	}
	if len(c.ContentExtensions) == 0 {
		c.ContentExtensions = pathguard.DefaultContentExtensions
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ScanConfig bounds the per-relocation reference scan.
type ScanConfig struct {
	MaxDocuments int `yaml:"max_documents"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	if c.MaxDocuments == 0 {
		c.MaxDocuments = 1000
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxDocuments, validation.Min(1)),
	)
}

// ArchiveConfig holds defaults for archive relocations.
type ArchiveConfig struct {
	Base       string `yaml:"base"`
	DateFormat string `yaml:"date_format"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	if c.Base == "" {
		c.Base = "archive"
	}
	if c.DateFormat == "" {
		c.DateFormat = "%Y-%m-%d"
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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
	// Normalise empty mode to "disabled" for backward compatibility.
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
		Vault: VaultConfig{
			Path:              "./vault",
			ProtectedDirs:     pathguard.DefaultProtectedDirs,
			ContentExtensions: pathguard.DefaultContentExtensions,
		},
		Scan: ScanConfig{
			MaxDocuments: 1000,
		},
		Archive: ArchiveConfig{
			Base:       "archive",
			DateFormat: "%Y-%m-%d",
		},
		SQLite: SQLiteConfig{
			Path: "./raido.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
