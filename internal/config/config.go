package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timtanatarov/daydi-spa/internal/sheets"
	"github.com/timtanatarov/daydi-spa/internal/utils"
)

// Backend names accepted by SheetsConfig.Backend.
const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

// Config holds all service configuration. It is loaded once at startup and
// passed explicitly to the components that need it.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sheets  SheetsConfig  `yaml:"sheets"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	RequestTimeout  string `yaml:"request_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// Timezone of the created-at column, e.g. "Europe/Moscow". Empty means
	// the process local zone.
	Timezone string `yaml:"timezone"`
	// InitTokenHash is a bcrypt hash guarding POST /sheets/init. Empty leaves
	// the endpoint open.
	InitTokenHash string `yaml:"init_token_hash"`
	TLSCertFile   string `yaml:"tls_cert_file"`
	TLSKeyFile    string `yaml:"tls_key_file"`
}

// SheetsConfig selects and configures the spreadsheet backend.
type SheetsConfig struct {
	Backend             string   `yaml:"backend"` // google, xlsx
	ServiceAccountEmail string   `yaml:"service_account_email"`
	PrivateKey          string   `yaml:"private_key"`
	SpreadsheetID       string   `yaml:"spreadsheet_id"`
	Range               string   `yaml:"range"`
	Headers             []string `yaml:"headers"`
	Endpoint            string   `yaml:"endpoint"`
	XLSXPath            string   `yaml:"xlsx_path"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  "30s",
			ShutdownTimeout: "10s",
		},
		Sheets: SheetsConfig{
			Backend: BackendGoogle,
			Headers: append([]string(nil), sheets.DefaultHeaders...),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (a missing file yields defaults) and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GOOGLE_SERVICE_ACCOUNT_EMAIL"); v != "" {
		c.Sheets.ServiceAccountEmail = v
	}
	if v := os.Getenv("GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY"); v != "" {
		c.Sheets.PrivateKey = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_ID"); v != "" {
		c.Sheets.SpreadsheetID = v
	}
	// An empty or blank GOOGLE_SHEETS_RANGE leaves the configured range alone.
	if v := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_RANGE")); v != "" {
		c.Sheets.Range = v
	}
	if v := os.Getenv("SHEETS_BACKEND"); v != "" {
		c.Sheets.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SHEETS_XLSX_PATH"); v != "" {
		c.Sheets.XLSXPath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("INIT_TOKEN_HASH"); v != "" {
		c.Server.InitTokenHash = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks settings that must be right at startup. Missing Google
// credentials are not checked here; they surface per request as a
// configuration error.
func (c *Config) Validate() error {
	switch c.Sheets.Backend {
	case BackendGoogle, BackendXLSX:
	default:
		return utils.ConfigError("unknown sheets backend %q (want %s or %s)", c.Sheets.Backend, BackendGoogle, BackendXLSX)
	}
	if n := len(c.Sheets.Headers); n != 0 && n != len(sheets.Row{}) {
		return utils.ConfigError("sheets.headers must list %d labels, got %d", len(sheets.Row{}), n)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return utils.ConfigError("server.tls_cert_file and server.tls_key_file must be set together")
	}
	if _, err := utils.ParseLevel(c.Logging.Level); err != nil {
		return utils.ConfigError("%v", err)
	}
	return nil
}

// RequestTimeout bounds one API request including the spreadsheet calls.
// Zero disables the bound.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration("server.request_timeout", c.Server.RequestTimeout)
}

func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

// Location returns the zone used for created-at timestamps.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, utils.ConfigError("invalid server.timezone %q: %v", c.Server.Timezone, err)
	}
	return loc, nil
}

// Credentials returns the Google service-account credentials.
func (c *Config) Credentials() sheets.Credentials {
	return sheets.Credentials{
		Email:         c.Sheets.ServiceAccountEmail,
		PrivateKey:    c.Sheets.PrivateKey,
		SpreadsheetID: c.Sheets.SpreadsheetID,
	}
}

// Backend builds the spreadsheet backend selected by the configuration.
func (c *Config) Backend() (sheets.Backend, error) {
	switch c.Sheets.Backend {
	case BackendGoogle:
		b := sheets.NewGoogleBackend(c.Credentials())
		b.Endpoint = c.Sheets.Endpoint
		return b, nil
	case BackendXLSX:
		path := c.Sheets.XLSXPath
		if path == "" {
			path = utils.DefaultWorkbookPath()
		}
		return sheets.NewWorkbookBackend(path), nil
	default:
		return nil, utils.ConfigError("unknown sheets backend %q", c.Sheets.Backend)
	}
}

func parseDuration(name, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, utils.ConfigError("invalid %s %q", name, value)
	}
	return d, nil
}
