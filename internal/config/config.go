package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up in the data directory
const FileName = "solarman.toml"

// Config holds application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	RateLimit  RateLimitConfig  `toml:"ratelimit"`
	Comparison ComparisonConfig `toml:"comparison"`
	Admin      AdminConfig      `toml:"admin"`

	// path of the file the config was read from, empty when none
	source string
}

// ServerConfig holds listener and rendering settings
type ServerConfig struct {
	ListenAddr         string `toml:"listen_addr"`
	Debug              bool   `toml:"debug"`
	LogLevel           string `toml:"log_level"`
	TemplatesDirectory string `toml:"templates_directory"`
	StaticDirectory    string `toml:"static_directory"`
}

// StorageConfig selects where submissions are kept
type StorageConfig struct {
	DataDirectory string `toml:"data_directory"`
	Backend       string `toml:"backend"` // file, sqlite, postgres, memory
	DatabaseURL   string `toml:"database_url,omitempty"`

	// Password unlocks encrypted file storage. Environment only.
	Password string `toml:"-"`
}

// RateLimitConfig throttles the submission endpoints. An empty RedisAddr
// keeps the limiter in process.
type RateLimitConfig struct {
	Requests  int           `toml:"requests"`
	Window    time.Duration `toml:"window"`
	RedisAddr string        `toml:"redis_addr,omitempty"`
}

// ComparisonConfig holds the defaults of the savings comparison
type ComparisonConfig struct {
	DefaultBill     float64  `toml:"default_bill"`
	DiscountPercent float64  `toml:"discount_percent"`
	ChartBill       float64  `toml:"chart_bill"`
	ChartRate       float64  `toml:"chart_rate"`
	ChartIncrease   float64  `toml:"chart_increase"`
	HorizonYears    int      `toml:"horizon_years"`
	PromoCode       string   `toml:"promo_code"`
	Providers       []string `toml:"providers"`
}

// AdminConfig guards the export endpoint. No password disables it.
type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password,omitempty"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		Server: ServerConfig{
			ListenAddr:         ":8080",
			LogLevel:           "info",
			TemplatesDirectory: filepath.Join(wd, "web", "templates"),
			StaticDirectory:    filepath.Join(wd, "web", "static"),
		},
		Storage: StorageConfig{
			DataDirectory: filepath.Join(wd, "data"),
			Backend:       "file",
		},
		RateLimit: RateLimitConfig{
			Requests: 5,
			Window:   time.Minute,
		},
		Comparison: ComparisonConfig{
			DefaultBill:     120,
			DiscountPercent: 15,
			ChartBill:       300,
			ChartRate:       255,
			ChartIncrease:   4,
			HorizonYears:    25,
			PromoCode:       "Summer2025",
			Providers: []string{
				"PSEG",
				"PECO",
				"PPL",
				"JCP&L",
				"Atlantic City Electric",
			},
		},
		Admin: AdminConfig{
			Username: "admin",
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file and
// SOLARMAN_* environment variables, in that order
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if dataDir := os.Getenv("SOLARMAN_DATA_DIR"); dataDir != "" {
		cfg.Storage.DataDirectory = dataDir
	}

	path := os.Getenv("SOLARMAN_CONFIG")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Storage.DataDirectory, FileName)
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if cfg.Storage.Backend == "sqlite" && cfg.Storage.DatabaseURL == "" {
		cfg.Storage.DatabaseURL = filepath.Join(cfg.Storage.DataDirectory, "submissions.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ensureDirectories()
	return cfg, nil
}

// readFile merges the TOML file at path into c. A missing file is only an
// error when it was asked for explicitly.
func (c *Config) readFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slog.Warn("unknown config keys ignored", "file", path, "keys", strings.Join(keys, ", "))
	}

	c.source = path
	return nil
}

func (c *Config) applyEnv() {
	if addr := os.Getenv("SOLARMAN_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if debug := os.Getenv("SOLARMAN_DEBUG"); debug == "true" || debug == "1" {
		c.Server.Debug = true
	}
	if dataDir := os.Getenv("SOLARMAN_DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if templatesDir := os.Getenv("SOLARMAN_TEMPLATES_DIR"); templatesDir != "" {
		c.Server.TemplatesDirectory = templatesDir
	}
	if staticDir := os.Getenv("SOLARMAN_STATIC_DIR"); staticDir != "" {
		c.Server.StaticDirectory = staticDir
	}
	if backend := os.Getenv("SOLARMAN_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if dbURL := os.Getenv("SOLARMAN_DATABASE_URL"); dbURL != "" {
		c.Storage.DatabaseURL = dbURL
	}
	if pw := os.Getenv("SOLARMAN_STORAGE_PASSWORD"); pw != "" {
		c.Storage.Password = pw
	}
	if redisAddr := os.Getenv("SOLARMAN_REDIS_ADDR"); redisAddr != "" {
		c.RateLimit.RedisAddr = redisAddr
	}
	if pw := os.Getenv("SOLARMAN_ADMIN_PASSWORD"); pw != "" {
		c.Admin.Password = pw
	}
	if level := os.Getenv("SOLARMAN_LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case "file", "sqlite", "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not one of file, sqlite, postgres, memory", c.Storage.Backend))
	}
	if c.Storage.Backend == "postgres" && c.Storage.DatabaseURL == "" {
		problems = append(problems, "storage.database_url is required for postgres")
	}
	if c.RateLimit.Requests < 1 {
		problems = append(problems, "ratelimit.requests must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		problems = append(problems, "ratelimit.window must be positive")
	}

	cmp := c.Comparison
	if cmp.DefaultBill <= 0 || cmp.ChartBill <= 0 || cmp.ChartRate <= 0 {
		problems = append(problems, "comparison bills and rates must be positive")
	}
	if cmp.DiscountPercent < 0 || cmp.DiscountPercent >= 100 {
		problems = append(problems, "comparison.discount_percent must be in [0, 100)")
	}
	if cmp.ChartIncrease <= -100 || cmp.ChartIncrease > 100 {
		problems = append(problems, "comparison.chart_increase must be in (-100, 100]")
	}
	if cmp.HorizonYears < 1 || cmp.HorizonYears > 100 {
		problems = append(problems, "comparison.horizon_years must be between 1 and 100")
	}
	if len(cmp.Providers) == 0 {
		problems = append(problems, "comparison.providers must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Source returns the file the config was read from, or "" for none
func (c *Config) Source() string {
	return c.source
}

// Encode writes c as TOML, leaving out the admin password and any password
// embedded in the database URL
func (c *Config) Encode(w io.Writer) error {
	redacted := *c
	if redacted.Admin.Password != "" {
		redacted.Admin.Password = "********"
	}
	redacted.Storage.DatabaseURL = redactDSN(redacted.Storage.DatabaseURL)
	return toml.NewEncoder(w).Encode(redacted)
}

var dsnPassword = regexp.MustCompile(`(?i)(password=)('[^']*'|\S+)`)

// redactDSN masks the password in a postgres URL or key=value connection string
func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}xxxxx")
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	if err := os.MkdirAll(c.Storage.DataDirectory, 0o750); err != nil {
		slog.Warn("could not create directory", "dir", c.Storage.DataDirectory, "error", err)
	}
}
