package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/GerGh0stface/GhostyPlaytime/internal/format"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Storage backends
const (
	BackendYAML     = "yaml"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Playtime PlaytimeConfig `toml:"playtime"`
	Format   FormatConfig   `toml:"format"`
}

// StorageConfig selects where snapshots are persisted
type StorageConfig struct {
	Backend    string `toml:"backend"`
	DataFile   string `toml:"data_file"`
	SQLitePath string `toml:"sqlite_path"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port       int    `toml:"port"`
	AdminToken string `toml:"admin_token"`
}

// PlaytimeConfig holds tracking, saving and paging settings
type PlaytimeConfig struct {
	AutoSaveSeconds int `toml:"auto_save_interval"`
	SaveTimeoutSecs int `toml:"save_timeout"`
	PageSize        int `toml:"page_size"`
	TopAmount       int `toml:"top_amount"`
	NameCacheSize   int `toml:"name_cache_size"`
	SaveWorkers     int `toml:"save_workers"`
	SaveQueueSize   int `toml:"save_queue_size"`
}

// AutoSaveInterval is the cadence of the background save driver
func (p PlaytimeConfig) AutoSaveInterval() time.Duration {
	return time.Duration(p.AutoSaveSeconds) * time.Second
}

// SaveTimeout bounds a single load or save; zero means no bound
func (p PlaytimeConfig) SaveTimeout() time.Duration {
	return time.Duration(p.SaveTimeoutSecs) * time.Second
}

// FormatConfig holds the unit suffixes used when rendering durations
type FormatConfig struct {
	DaySuffix    string `toml:"day_suffix"`
	HourSuffix   string `toml:"hour_suffix"`
	MinuteSuffix string `toml:"minute_suffix"`
	SecondSuffix string `toml:"second_suffix"`
}

// Suffixes converts the configured unit labels for the formatter
func (f FormatConfig) Suffixes() format.Suffixes {
	return format.Suffixes{
		Day:    f.DaySuffix,
		Hour:   f.HourSuffix,
		Minute: f.MinuteSuffix,
		Second: f.SecondSuffix,
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    BackendYAML,
			DataFile:   "data/playtime.yml",
			SQLitePath: "data/playtime.db",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "playtime",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Server: ServerConfig{
			Port: 8000,
		},
		Playtime: PlaytimeConfig{
			AutoSaveSeconds: 300,
			SaveTimeoutSecs: 10,
			PageSize:        45,
			TopAmount:       5,
			NameCacheSize:   10000,
			SaveWorkers:     1,
			SaveQueueSize:   16,
		},
		Format: FormatConfig{
			DaySuffix:    "d",
			HourSuffix:   "h",
			MinuteSuffix: "m",
			SecondSuffix: "s",
		},
	}
}

// Load loads configuration: built-in defaults, then the optional TOML file
// named by CONFIG_FILE, then environment variables (including .env).
func Load() (*Config, error) {
	// Load .env file from parent directory first, then current directory
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.DataFile = getEnv("DATA_FILE", cfg.Storage.DataFile)
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnvAsInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Username = getEnv("REDIS_USERNAME", cfg.Redis.Username)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Server.Port = getEnvAsInt("BACKEND_PORT", cfg.Server.Port)
	cfg.Server.AdminToken = getEnv("ADMIN_TOKEN", cfg.Server.AdminToken)

	cfg.Playtime.AutoSaveSeconds = getEnvAsInt("AUTO_SAVE_INTERVAL", cfg.Playtime.AutoSaveSeconds)
	cfg.Playtime.SaveTimeoutSecs = getEnvAsInt("SAVE_TIMEOUT", cfg.Playtime.SaveTimeoutSecs)
	cfg.Playtime.PageSize = getEnvAsInt("PAGE_SIZE", cfg.Playtime.PageSize)
	cfg.Playtime.TopAmount = getEnvAsInt("TOP_AMOUNT", cfg.Playtime.TopAmount)
	cfg.Playtime.NameCacheSize = getEnvAsInt("NAME_CACHE_SIZE", cfg.Playtime.NameCacheSize)
	cfg.Playtime.SaveWorkers = getEnvAsInt("SAVE_WORKERS", cfg.Playtime.SaveWorkers)
	cfg.Playtime.SaveQueueSize = getEnvAsInt("SAVE_QUEUE_SIZE", cfg.Playtime.SaveQueueSize)

	cfg.Format.DaySuffix = getEnv("TIME_SUFFIX_DAY", cfg.Format.DaySuffix)
	cfg.Format.HourSuffix = getEnv("TIME_SUFFIX_HOUR", cfg.Format.HourSuffix)
	cfg.Format.MinuteSuffix = getEnv("TIME_SUFFIX_MINUTE", cfg.Format.MinuteSuffix)
	cfg.Format.SecondSuffix = getEnv("TIME_SUFFIX_SECOND", cfg.Format.SecondSuffix)
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendYAML, BackendPostgres, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Playtime.AutoSaveSeconds <= 0 {
		return fmt.Errorf("AUTO_SAVE_INTERVAL must be positive, got %d", c.Playtime.AutoSaveSeconds)
	}
	if c.Playtime.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.Playtime.PageSize)
	}
	if c.Playtime.SaveWorkers <= 0 || c.Playtime.SaveQueueSize <= 0 {
		return fmt.Errorf("SAVE_WORKERS and SAVE_QUEUE_SIZE must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL DSN
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
