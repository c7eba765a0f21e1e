package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the client configuration
type Config struct {
	API           APIConfig           `yaml:"api"`
	State         StateConfig         `yaml:"state"`
	Wallet        WalletConfig        `yaml:"wallet"`
	Documents     DocumentsConfig     `yaml:"documents"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
}

// APIConfig contains the rental API and static asset endpoints
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" env:"VCAR_API_BASE_URL"`
	AssetBaseURL string        `yaml:"asset_base_url" env:"VCAR_ASSET_BASE_URL"`
	Timeout      time.Duration `yaml:"timeout" env:"VCAR_API_TIMEOUT"`
}

// StateConfig contains client-persisted state locations
type StateConfig struct {
	DBPath      string `yaml:"db_path" env:"VCAR_STATE_DB"`
	DownloadDir string `yaml:"download_dir" env:"VCAR_DOWNLOAD_DIR"`
}

// WalletConfig contains the chain endpoint, signing key and fee settings
type WalletConfig struct {
	RPCURL           string `yaml:"rpc_url" env:"VCAR_RPC_URL"`
	KeystorePath     string `yaml:"keystore" env:"VCAR_KEYSTORE"`
	KeystorePassword string `yaml:"keystore_password" env:"VCAR_KEYSTORE_PASSWORD"`
	OwnerAddress     string `yaml:"owner_address" env:"VCAR_OWNER_ADDRESS"`
	SignFee          string `yaml:"sign_fee" env:"VCAR_SIGN_FEE"`
	MinBalance       string `yaml:"min_balance" env:"VCAR_MIN_BALANCE"`
}

// DocumentsConfig contains template rendering settings
type DocumentsConfig struct {
	// TemplateDir, when set, is read instead of downloading templates
	TemplateDir string `yaml:"template_dir" env:"VCAR_TEMPLATE_DIR"`
	TimeZone    string `yaml:"time_zone" env:"VCAR_TIMEZONE"`
}

// NotificationsConfig contains notification poller settings
type NotificationsConfig struct {
	PollSchedule string `yaml:"poll_schedule" env:"VCAR_NOTIFICATION_SCHEDULE"`
	PageSize     int    `yaml:"page_size" env:"VCAR_NOTIFICATION_PAGE_SIZE"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// DefaultDir is the per-user directory holding config, state and downloads.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vcar"
	}
	return filepath.Join(home, ".vcar")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads configuration from a YAML file, overlays environment variables
// and validates the result. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate applies defaults and checks that the configuration is usable
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8080/api/v1"
	}
	if err := checkHTTPURL("api base url", c.API.BaseURL); err != nil {
		return err
	}
	if c.API.AssetBaseURL == "" {
		c.API.AssetBaseURL = "http://localhost:5173"
	}
	if err := checkHTTPURL("asset base url", c.API.AssetBaseURL); err != nil {
		return err
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid api timeout: %s", c.API.Timeout)
	}

	if c.State.DBPath == "" {
		c.State.DBPath = filepath.Join(DefaultDir(), "state.db")
	}
	if c.State.DownloadDir == "" {
		c.State.DownloadDir = filepath.Join(DefaultDir(), "downloads")
	}

	if c.Wallet.SignFee == "" {
		c.Wallet.SignFee = "0.05"
	}
	if c.Wallet.MinBalance == "" {
		c.Wallet.MinBalance = c.Wallet.SignFee
	}
	if _, err := c.SignFee(); err != nil {
		return err
	}
	if _, err := c.MinBalance(); err != nil {
		return err
	}
	if c.Wallet.OwnerAddress != "" && !common.IsHexAddress(c.Wallet.OwnerAddress) {
		return fmt.Errorf("invalid owner address: %s", c.Wallet.OwnerAddress)
	}

	if c.Documents.TimeZone == "" {
		c.Documents.TimeZone = "Asia/Ho_Chi_Minh"
	}
	if _, err := time.LoadLocation(c.Documents.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Documents.TimeZone, err)
	}

	if c.Notifications.PollSchedule == "" {
		c.Notifications.PollSchedule = "@every 30s"
	}
	if c.Notifications.PageSize <= 0 {
		c.Notifications.PageSize = 20
	}

	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	return nil
}

// SignFee returns the contract signing fee in native units
func (c *Config) SignFee() (decimal.Decimal, error) {
	return parseAmount("sign fee", c.Wallet.SignFee)
}

// MinBalance returns the balance required before paying the signing fee
func (c *Config) MinBalance() (decimal.Decimal, error) {
	return parseAmount("min balance", c.Wallet.MinBalance)
}

// Location returns the time zone used for rendered documents
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Documents.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseAmount(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative: %s", name, value)
	}
	return d, nil
}

func checkHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an http(s) url", name, raw)
	}
	return nil
}
