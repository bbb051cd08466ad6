package environments

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverValkey = "valkey"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Hoppie   HoppieConfig   `yaml:"hoppie"`
	Sync     SyncConfig     `yaml:"sync"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Notify   NotifyConfig   `yaml:"notify"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type HoppieConfig struct {
	URL       string `yaml:"url"`
	StatusURL string `yaml:"status_url"`
	// Station is the dispatch callsign used as sender and mailbox.
	Station   string        `yaml:"station"`
	LogonCode string        `yaml:"logon_code"`
	Timeout   time.Duration `yaml:"timeout"`
	// MaxAttempts bounds send attempts after connection failures.
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

type SyncConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	AutoStart      bool          `yaml:"auto_start"`
	AlertThreshold int           `yaml:"alert_threshold"`
}

type StorageConfig struct {
	Driver      string        `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	Namespace   string        `yaml:"namespace"`
	DedupWindow time.Duration `yaml:"dedup_window"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Hoppie: HoppieConfig{
			URL:               "http://www.hoppie.nl/acars/system/connect.html",
			StatusURL:         "https://www.hoppie.nl/acars/system/status.html",
			Station:           "JALV",
			Timeout:           10 * time.Second,
			MaxAttempts:       3,
			RetryDelay:        time.Second,
			RequestsPerMinute: 60,
		},
		Sync: SyncConfig{
			PollInterval:   30 * time.Second,
			AutoStart:      true,
			AlertThreshold: 0,
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			SQLitePath: "acars.db",
			Namespace:  "messages",
		},
		Database: DatabaseConfig{
			Host:   "localhost",
			Port:   "3306",
			User:   "acars",
			DBName: "acars",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by CONFIG_FILE, a .env file and finally the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = GetEnv("SERVER_PORT", c.Server.Port)

	c.Hoppie.URL = GetEnv("HOPPIE_API_URL", c.Hoppie.URL)
	c.Hoppie.StatusURL = GetEnv("HOPPIE_STATUS_URL", c.Hoppie.StatusURL)
	c.Hoppie.Station = strings.ToUpper(GetEnv("DISPATCH_CALLSIGN", c.Hoppie.Station))
	c.Hoppie.LogonCode = GetEnv("HOPPIE_LOGON_CODE", c.Hoppie.LogonCode)
	c.Hoppie.Timeout = GetEnvAsMillis("API_TIMEOUT", c.Hoppie.Timeout)
	c.Hoppie.MaxAttempts = GetEnvAsInt("API_RETRY_ATTEMPTS", c.Hoppie.MaxAttempts)
	c.Hoppie.RetryDelay = GetEnvAsMillis("API_RETRY_DELAY", c.Hoppie.RetryDelay)
	c.Hoppie.RequestsPerMinute = GetEnvAsInt("HOPPIE_REQUESTS_PER_MINUTE", c.Hoppie.RequestsPerMinute)

	c.Sync.PollInterval = GetEnvAsSeconds("HOPPIE_POLL_INTERVAL_SECONDS", c.Sync.PollInterval)
	c.Sync.AutoStart = GetEnvAsBool("AUTO_START_SYNC", c.Sync.AutoStart)
	c.Sync.AlertThreshold = GetEnvAsInt("SYNC_ALERT_THRESHOLD", c.Sync.AlertThreshold)

	c.Storage.Driver = strings.ToLower(GetEnv("STORAGE_DRIVER", c.Storage.Driver))
	c.Storage.SQLitePath = GetEnv("SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.Namespace = GetEnv("STORAGE_NAMESPACE", c.Storage.Namespace)
	c.Storage.DedupWindow = GetEnvAsSeconds("DEDUP_WINDOW_SECONDS", c.Storage.DedupWindow)

	c.Database.Host = GetEnv("DB_HOST", c.Database.Host)
	c.Database.Port = GetEnv("DB_PORT", c.Database.Port)
	c.Database.User = GetEnv("DB_USER", c.Database.User)
	c.Database.Password = GetEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = GetEnv("DB_NAME", c.Database.DBName)

	c.Redis.Host = GetEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = GetEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = GetEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = GetEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Notify.WebhookURL = GetEnv("NOTIFY_WEBHOOK_URL", c.Notify.WebhookURL)
	c.Notify.Timeout = GetEnvAsDuration("NOTIFY_TIMEOUT", c.Notify.Timeout)

	c.Auth.APIKey = GetEnv("API_KEY", c.Auth.APIKey)

	c.Logging.Level = GetEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Pretty = GetEnvAsBool("LOG_PRETTY", c.Logging.Pretty)
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Hoppie.URL == "" {
		return fmt.Errorf("config: hoppie url is required")
	}
	if c.Hoppie.Station == "" {
		return fmt.Errorf("config: dispatch callsign is required")
	}
	if c.Hoppie.Timeout <= 0 {
		return fmt.Errorf("config: hoppie timeout must be positive, got %v", c.Hoppie.Timeout)
	}
	if c.Hoppie.MaxAttempts < 1 {
		return fmt.Errorf("config: retry attempts must be at least 1, got %d", c.Hoppie.MaxAttempts)
	}
	if c.Hoppie.RetryDelay < 0 {
		return fmt.Errorf("config: retry delay must not be negative")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive, got %v", c.Sync.PollInterval)
	}
	if c.Storage.Namespace == "" {
		return fmt.Errorf("config: storage namespace is required")
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverMySQL, DriverValkey:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	return nil
}

// HasCredentials reports whether a logon code is configured, so the sync
// loop can start without waiting for a login.
func (c *Config) HasCredentials() bool {
	return c.Hoppie.LogonCode != "" && c.Hoppie.Station != ""
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvAsMillis reads an integer number of milliseconds.
func GetEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// GetEnvAsSeconds reads an integer number of seconds.
func GetEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if s, err := strconv.Atoi(value); err == nil {
			return time.Duration(s) * time.Second
		}
	}
	return defaultValue
}
