package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string                   `mapstructure:"env"`
	Server   ServerConfig             `mapstructure:"server"`
	Database DatabaseConfig           `mapstructure:"database"`
	Webhooks WebhooksConfig           `mapstructure:"webhooks"`
	Renewals RenewalsConfig           `mapstructure:"renewals"`
	Networks map[string]NetworkConfig `mapstructure:"networks"`
	Chain    ChainConfig              `mapstructure:"chain"`
	Pricing  PricingConfig            `mapstructure:"pricing"`
	Monitor  MonitorConfig            `mapstructure:"monitor"`
	Export   ExportConfig             `mapstructure:"export"`
	Email    EmailConfig              `mapstructure:"email"`
	Logging  LoggingConfig            `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type WebhooksConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	BackoffMin   time.Duration `mapstructure:"backoff_min"`
	BackoffCap   time.Duration `mapstructure:"backoff_cap"`
	RetryCeiling time.Duration `mapstructure:"retry_ceiling"`
}

type RenewalsConfig struct {
	// MaxCostCents is the subsidy ceiling: the highest renewal cost, in US
	// cents, covered even when the lock offers no gas refund.
	MaxCostCents int64  `mapstructure:"max_cost_cents"`
	Schedule     string `mapstructure:"schedule"`
}

type NetworkConfig struct {
	ChainID int64  `mapstructure:"chain_id"`
	Name    string `mapstructure:"name"`
	// Signer is the operator address the dispatcher signs with on this
	// network, recorded on renewals it initiates.
	Signer string `mapstructure:"signer"`
	Test   bool   `mapstructure:"test"`
}

// ChainConfig points at the fulfillment dispatcher service that owns wallets
// and RPC access. This process never signs transactions itself.
type ChainConfig struct {
	DispatchURL string        `mapstructure:"dispatch_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PricingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MonitorConfig struct {
	MinBalanceCents int64  `mapstructure:"min_balance_cents"`
	Schedule        string `mapstructure:"schedule"`
}

type ExportConfig struct {
	Backend         string `mapstructure:"backend"` // file or s3
	Dir             string `mapstructure:"dir"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PageSize        int    `mapstructure:"page_size"`
}

type EmailConfig struct {
	DispatchURL string        `mapstructure:"dispatch_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("env", "development")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("webhooks.timeout", "1s")
	viper.SetDefault("webhooks.retries", 3)
	viper.SetDefault("webhooks.backoff_min", "100ms")
	viper.SetDefault("webhooks.backoff_cap", "200ms")
	viper.SetDefault("webhooks.retry_ceiling", "1s")
	viper.SetDefault("renewals.max_cost_cents", 1000)
	viper.SetDefault("monitor.min_balance_cents", 5000)
	viper.SetDefault("export.backend", "file")
	viper.SetDefault("export.page_size", 100)
	viper.SetDefault("chain.timeout", "10s")
	viper.SetDefault("pricing.timeout", "5s")
	viper.SetDefault("email.timeout", "10s")
}
