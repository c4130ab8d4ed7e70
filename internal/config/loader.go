package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/db"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TESTCRAFT_SERVER_ADDR.
const EnvPrefix = "TESTCRAFT"

// Storage and progress backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	ProgressMemory = "memory"
	ProgressRedis  = "redis"
)

type Config struct {
	Server   ServerConfig
	Database db.Config
	Storage  StorageConfig
	Import   ImportConfig
	Progress ProgressConfig
	OpenAI   OpenAIConfig
	Log      LogConfig

	// File is the config file that was read, empty when none was found.
	File string
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type StorageConfig struct {
	Driver string
}

type ImportConfig struct {
	MaxFileSize int64
	PaceEvery   int
	Pause       time.Duration
	PreviewRows int
	ReportDir   string
}

type ProgressConfig struct {
	Backend  string
	TTL      time.Duration
	Capacity int
	Redis    RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.corsOrigins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.maxConns", dbDefaults.MaxConns)

	v.SetDefault("storage.driver", StoragePostgres)

	v.SetDefault("import.maxFileSize", 10<<20)
	v.SetDefault("import.paceEvery", 10)
	v.SetDefault("import.pause", "10ms")
	v.SetDefault("import.previewRows", 10)
	v.SetDefault("import.reportDir", "")

	v.SetDefault("progress.backend", ProgressMemory)
	v.SetDefault("progress.ttl", "24h")
	v.SetDefault("progress.capacity", 1000)
	v.SetDefault("progress.redis.addr", "localhost:6379")
	v.SetDefault("progress.redis.password", "")
	v.SetDefault("progress.redis.db", 0)

	v.SetDefault("openai.apiKey", "")
	v.SetDefault("openai.baseURL", "")
	v.SetDefault("openai.model", "")
	v.SetDefault("openai.systemPrompt", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yaml from configPath when present, then applies
// TESTCRAFT_* environment overrides on top of the built-in defaults.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	cfg.Server = ServerConfig{
		Addr:         v.GetString("server.addr"),
		ReadTimeout:  v.GetDuration("server.readTimeout"),
		WriteTimeout: v.GetDuration("server.writeTimeout"),
		CORSOrigins:  v.GetStringSlice("server.corsOrigins"),
	}
	cfg.Database = db.Config{
		Host:     v.GetString("database.host"),
		Port:     v.GetInt("database.port"),
		User:     v.GetString("database.user"),
		Password: v.GetString("database.password"),
		DBName:   v.GetString("database.dbname"),
		SSLMode:  v.GetString("database.sslmode"),
		MaxConns: v.GetInt32("database.maxConns"),
	}
	cfg.Storage = StorageConfig{Driver: strings.ToLower(v.GetString("storage.driver"))}
	cfg.Import = ImportConfig{
		MaxFileSize: v.GetInt64("import.maxFileSize"),
		PaceEvery:   v.GetInt("import.paceEvery"),
		Pause:       v.GetDuration("import.pause"),
		PreviewRows: v.GetInt("import.previewRows"),
		ReportDir:   v.GetString("import.reportDir"),
	}
	cfg.Progress = ProgressConfig{
		Backend:  strings.ToLower(v.GetString("progress.backend")),
		TTL:      v.GetDuration("progress.ttl"),
		Capacity: v.GetInt("progress.capacity"),
		Redis: RedisConfig{
			Addr:     v.GetString("progress.redis.addr"),
			Password: v.GetString("progress.redis.password"),
			DB:       v.GetInt("progress.redis.db"),
		},
	}
	cfg.OpenAI = OpenAIConfig{
		APIKey:       v.GetString("openai.apiKey"),
		BaseURL:      v.GetString("openai.baseURL"),
		Model:        v.GetString("openai.model"),
		SystemPrompt: v.GetString("openai.systemPrompt"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Progress.Backend {
	case ProgressMemory, ProgressRedis:
	default:
		return fmt.Errorf("unknown progress.backend %q", c.Progress.Backend)
	}
	if c.Import.MaxFileSize <= 0 {
		return fmt.Errorf("import.maxFileSize must be positive")
	}
	return nil
}
