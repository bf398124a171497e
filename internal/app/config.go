package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bingwamta/databot/core/buildinfo"
	coreconfig "github.com/bingwamta/databot/core/config"
	coredatabase "github.com/bingwamta/databot/core/database"
	"github.com/bingwamta/databot/internal/conversation"
	"github.com/bingwamta/databot/internal/payment"
)

// Storage drivers accepted by storage.driver.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultBotName        = "Bingwa Data Deals Bot"
	defaultSupportContact = "@bingwamta"
	defaultSupportPhone   = "0707071631"
	defaultUsersFile      = "user_data.json"
	defaultSQLitePath     = "data/users.db"
)

// BotConfig holds user-facing texts and conversation timing.
type BotConfig struct {
	Name           string `yaml:"name" envconfig:"BOT_NAME"`
	SupportContact string `yaml:"support_contact" envconfig:"SUPPORT_CONTACT"`
	SupportPhone   string `yaml:"support_phone" envconfig:"SUPPORT_PHONE"`
	// SessionTimeoutSeconds expires idle purchase sessions; 0 -> default.
	SessionTimeoutSeconds int `yaml:"session_timeout_seconds" envconfig:"SESSION_TIMEOUT_SECONDS"`
	// BroadcastConcurrency bounds parallel broadcast sends; 0 -> default.
	BroadcastConcurrency int `yaml:"broadcast_concurrency" envconfig:"BROADCAST_CONCURRENCY"`
}

// PaymentConfig configures the PayHero gateway.
type PaymentConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"PAYHERO_BASE_URL"`
	Username       string `yaml:"username" envconfig:"API_USERNAME"`
	Password       string `yaml:"password" envconfig:"API_PASSWORD"`
	ChannelID      int    `yaml:"channel_id" envconfig:"PAYHERO_CHANNEL_ID"`
	Provider       string `yaml:"provider" envconfig:"PAYHERO_PROVIDER"`
	CallbackURL    string `yaml:"callback_url" envconfig:"PAYHERO_CALLBACK_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"PAYHERO_TIMEOUT_SECONDS"`
}

// StorageConfig selects the user directory backend.
type StorageConfig struct {
	Driver     string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	UsersFile  string `yaml:"users_file" envconfig:"USERS_FILE"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// Config is the full process configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Bot      BotConfig           `yaml:"bot"`
	Payment  PaymentConfig       `yaml:"payment"`
	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// LoadConfig reads path (optional) and the environment, then validates the
// result. Missing payment credentials fail here, before any network call.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadStorageConfig is LoadConfig for offline tools: only the storage and
// database sections are validated.
func LoadStorageConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalizeStorage(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Bot.Name) == "" {
		c.Bot.Name = defaultBotName
	}
	if strings.TrimSpace(c.Bot.SupportContact) == "" {
		c.Bot.SupportContact = defaultSupportContact
	}
	if strings.TrimSpace(c.Bot.SupportPhone) == "" {
		c.Bot.SupportPhone = defaultSupportPhone
	}
	if c.Bot.SessionTimeoutSeconds < 0 {
		return errors.New("bot.session_timeout_seconds must be >= 0")
	}
	if c.Bot.BroadcastConcurrency < 0 {
		return errors.New("bot.broadcast_concurrency must be >= 0")
	}

	var missing []string
	if strings.TrimSpace(c.Payment.Username) == "" {
		missing = append(missing, "API_USERNAME")
	}
	if strings.TrimSpace(c.Payment.Password) == "" {
		missing = append(missing, "API_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("payment credentials are required (%s)", strings.Join(missing, ", "))
	}
	if c.Payment.TimeoutSeconds < 0 {
		return errors.New("payment.timeout_seconds must be >= 0")
	}

	return c.normalizeStorage()
}

func (c *Config) normalizeStorage() error {
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if driver == "" {
		driver = DriverFile
	}
	switch driver {
	case DriverFile:
		if strings.TrimSpace(c.Storage.UsersFile) == "" {
			c.Storage.UsersFile = defaultUsersFile
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			c.Storage.SQLitePath = defaultSQLitePath
		}
	case DriverPostgres:
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, sqlite, postgres", c.Storage.Driver)
	}
	c.Storage.Driver = driver
	return nil
}

// conversationConfig bounds the confirmation step by the gateway timeout so a
// slow charge is not cut short by the engine.
func (c *Config) conversationConfig() conversation.Config {
	return conversation.Config{
		BotName:        c.Bot.Name,
		Version:        buildinfo.Version,
		SupportContact: c.Bot.SupportContact,
		SupportPhone:   c.Bot.SupportPhone,
		SessionTimeout: time.Duration(c.Bot.SessionTimeoutSeconds) * time.Second,
		ChargeTimeout:  c.paymentTimeout(),
	}
}

func (c *Config) paymentTimeout() time.Duration {
	return time.Duration(c.Payment.TimeoutSeconds) * time.Second
}

func (c *Config) paymentConfig() payment.Config {
	return payment.Config{
		BaseURL:     c.Payment.BaseURL,
		Username:    c.Payment.Username,
		Password:    c.Payment.Password,
		ChannelID:   c.Payment.ChannelID,
		Provider:    c.Payment.Provider,
		CallbackURL: c.Payment.CallbackURL,
		Timeout:     c.paymentTimeout(),
	}
}
