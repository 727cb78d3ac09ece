// Package config loads service settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DBConfig selects and addresses the relational store.
type DBConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite file, ":memory:" for tests

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// DSN returns the MySQL data source name.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?multiStatements=true&parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// InventoryConfig locates the stock inventory.
type InventoryConfig struct {
	URL          string        `yaml:"url"`           // JSON endpoint; wins over Snapshot when set
	Snapshot     string        `yaml:"snapshot"`      // JSON file
	TTL          time.Duration `yaml:"ttl"`           // cache lifetime
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // per request
}

// LoadConfig holds truck load settings.
type LoadConfig struct {
	CapacityLbs  float64 `yaml:"capacity_lbs"`
	WarnFraction float64 `yaml:"warn_fraction"`
}

// Config holds every service setting.
type Config struct {
	ListenAddr  string          `yaml:"listen_addr"`
	LogLevel    string          `yaml:"log_level"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RedisAddr   string          `yaml:"redis_addr"` // empty disables Redis
	DB          DBConfig        `yaml:"db"`
	Inventory   InventoryConfig `yaml:"inventory"`
	Load        LoadConfig      `yaml:"load"`
}

// DefaultConfig returns a Config with the shop defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":8080",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
		DB: DBConfig{
			Driver:       "sqlite",
			Host:         "localhost",
			Port:         "3306",
			Path:         filepath.Join(DefaultConfigDir(), "subtrack.db"),
			MaxOpenConns: 50,
			MaxIdleConns: 25,
		},
		Inventory: InventoryConfig{
			TTL:          5 * time.Minute,
			FetchTimeout: 30 * time.Second,
		},
		Load: LoadConfig{
			CapacityLbs:  48000,
			WarnFraction: 0.25,
		},
	}
}

// DefaultConfigDir returns ~/.subtrack, or ./.subtrack when there is no home.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".subtrack")
}

// DefaultConfigPath returns the default path of the YAML config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LoadFile reads a YAML config over the defaults. A missing file yields the
// defaults with no error.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml config parsing error: %w", err)
	}
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{}
	}
	return cfg, nil
}

// SaveFile writes cfg as YAML, creating parent directories.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads the YAML file at path (the default path when empty), then
// loads .env from the working directory if present, then applies the
// environment.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	// .env is optional
	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SUBTRACK_LISTEN_ADDR", &c.ListenAddr)
	str("SUBTRACK_LOG_LEVEL", &c.LogLevel)
	str("SUBTRACK_INVENTORY_URL", &c.Inventory.URL)
	str("SUBTRACK_INVENTORY_SNAPSHOT", &c.Inventory.Snapshot)
	str("REDIS_ADDRESS", &c.RedisAddr)
	str("DB_DRIVER", &c.DB.Driver)
	str("DB_HOST", &c.DB.Host)
	str("DB_PORT", &c.DB.Port)
	str("DB_USER", &c.DB.User)
	str("DB_PASSWORD", &c.DB.Password)
	str("DB_NAME", &c.DB.Name)
	str("DB_PATH", &c.DB.Path)

	if v := strings.TrimSpace(getenv("SUBTRACK_CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}
	if d, err := time.ParseDuration(strings.TrimSpace(getenv("SUBTRACK_INVENTORY_TTL"))); err == nil && d > 0 {
		c.Inventory.TTL = d
	}
	c.Load.CapacityLbs = floatFromEnv(getenv, "SUBTRACK_LOAD_CAPACITY", c.Load.CapacityLbs)
	c.Load.WarnFraction = floatFromEnv(getenv, "SUBTRACK_LOAD_WARN_FRACTION", c.Load.WarnFraction)
	c.DB.MaxOpenConns = intFromEnv(getenv, "DB_MAX_OPEN_CONNS", c.DB.MaxOpenConns)
	c.DB.MaxIdleConns = intFromEnv(getenv, "DB_MAX_IDLE_CONNS", c.DB.MaxIdleConns)
}

func intFromEnv(getenv func(string) string, key string, def int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(getenv func(string) string, key string, def float64) float64 {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Load.CapacityLbs <= 0 {
		return fmt.Errorf("load capacity must be positive, got %v", c.Load.CapacityLbs)
	}
	if c.Load.WarnFraction < 0 || c.Load.WarnFraction > 1 {
		return fmt.Errorf("load warn fraction must be within [0, 1], got %v", c.Load.WarnFraction)
	}
	return nil
}
