package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// Config holds the full application configuration.
type Config struct {
	Service ServiceConfig `yaml:"service" mapstructure:"service"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ServiceConfig locates the reconciliation service.
type ServiceConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Timeout returns the request timeout. Zero means none.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// Limiter builds the outbound submission limiter, or nil when rate_per_sec
// is not positive.
func (s ServiceConfig) Limiter() *rate.Limiter {
	if s.RatePerSec <= 0 {
		return nil
	}
	burst := s.RateBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.RatePerSec), burst)
}

// ExportConfig configures report exports.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Label  string `yaml:"label" mapstructure:"label"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the web console.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("service.base_url", "http://127.0.0.1:5000")
	v.SetDefault("service.endpoint", "/match")
	v.SetDefault("service.timeout_secs", 0)
	v.SetDefault("service.rate_per_sec", 1)
	v.SetDefault("service.rate_burst", 1)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.label", "中签结果")
	v.SetDefault("export.format", "csv")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8080", "http://127.0.0.1:8080"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "match" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "match", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if u, err := url.Parse(c.Service.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "service.base_url must be an absolute URL")
	}
	if c.Service.Endpoint == "" {
		errs = append(errs, "service.endpoint is required")
	}
	if c.Service.TimeoutSecs < 0 {
		errs = append(errs, "service.timeout_secs must be >= 0")
	}
	switch strings.ToLower(c.Export.Format) {
	case "", "csv", "xlsx":
	default:
		errs = append(errs, "export.format must be csv or xlsx")
	}
	if strings.ContainsAny(c.Export.Label, `/\`) {
		errs = append(errs, "export.label must not contain path separators")
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be > 0 and <= 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
