// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Mail    MailConfig    `mapstructure:"mail"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the connection string pgx expects.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

// MailConfig holds the alert-mail transport settings.
type MailConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	To          string `mapstructure:"to"`
	Encryption  string `mapstructure:"encryption"`
}

// UseSSL reports whether the transport uses implicit TLS rather than STARTTLS.
func (c MailConfig) UseSSL() bool {
	return strings.EqualFold(c.Encryption, "ssl")
}

// ScraperConfig governs the lookup pipeline.
type ScraperConfig struct {
	Retries        int     `mapstructure:"retries"`
	BackoffSeconds int     `mapstructure:"backoff_seconds"`
	Headed         bool    `mapstructure:"headed"`
	UserAgent      string  `mapstructure:"user_agent"`
	Locale         string  `mapstructure:"locale"`
	PaceQPS        float64 `mapstructure:"pace_qps"`
	FailedCSV      string  `mapstructure:"failed_csv"`
	ErrorLog       string  `mapstructure:"error_log"`
	DebugDir       string  `mapstructure:"debug_dir"`
	BaseURL        string  `mapstructure:"base_url"`
	SiteKey        string  `mapstructure:"site_key"`
	Action         string  `mapstructure:"action"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CMPSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "doctors")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 465)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from_address", "")
	v.SetDefault("mail.from_name", "Scraper")
	v.SetDefault("mail.to", "")
	v.SetDefault("mail.encryption", "ssl")

	v.SetDefault("scraper.retries", 1)
	v.SetDefault("scraper.backoff_seconds", 3)
	v.SetDefault("scraper.headed", false)
	v.SetDefault("scraper.user_agent", defaultUserAgent)
	v.SetDefault("scraper.locale", "es-ES")
	v.SetDefault("scraper.pace_qps", 0)
	v.SetDefault("scraper.failed_csv", "failed_cmp.csv")
	v.SetDefault("scraper.error_log", "scrap.logs")
	v.SetDefault("scraper.debug_dir", "")
	v.SetDefault("scraper.base_url", "")
	v.SetDefault("scraper.site_key", "")
	v.SetDefault("scraper.action", "")

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.Host == "" {
		return errors.New("db.host must be set")
	}
	if c.DB.Port <= 0 {
		return errors.New("db.port must be > 0")
	}
	if c.Mail.Port <= 0 {
		return errors.New("mail.port must be > 0")
	}
	if c.Scraper.Retries < 0 {
		return errors.New("scraper.retries must be >= 0")
	}
	if c.Scraper.BackoffSeconds < 0 {
		return errors.New("scraper.backoff_seconds must be >= 0")
	}
	if c.Scraper.PaceQPS < 0 {
		return errors.New("scraper.pace_qps must be >= 0")
	}
	return nil
}
