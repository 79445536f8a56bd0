package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Listen           string          `mapstructure:"listen"`
	JWTSecret        string          `mapstructure:"jwt_secret"`
	AuthPasswordHash string          `mapstructure:"auth_password_hash"`
	Retention        RetentionConfig `mapstructure:"retention"`
}

// RetentionConfig controls pruning of stale chat sessions.
type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	CronSpec string        `mapstructure:"cron_spec"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

func (r RetentionConfig) Validate() error {
	if r.Enabled && r.MaxAge <= 0 {
		return fmt.Errorf("server.retention.max_age must be > 0 when retention is enabled")
	}
	return nil
}

// LLMConfig contains the model service connection and routing settings
type LLMConfig struct {
	BaseURL      string           `mapstructure:"base_url"`
	Timeout      time.Duration    `mapstructure:"timeout"`
	Temperature  float64          `mapstructure:"temperature"`
	HistoryTurns int              `mapstructure:"history_turns"`
	Routing      LLMRoutingConfig `mapstructure:"routing"`
}

// LLMRoutingConfig defines which model to use for different tasks
type LLMRoutingConfig struct {
	Planning  string `mapstructure:"planning"`  // plan generation
	Chat      string `mapstructure:"chat"`      // direct responses
	Synthesis string `mapstructure:"synthesis"` // end-of-plan synthesis
	Title     string `mapstructure:"title"`     // chat title generation
	Fallback  string `mapstructure:"fallback"`  // fallback model
}

// Model resolves a routed model name, falling back when unset.
func (r LLMRoutingConfig) Model(name string) string {
	if name != "" {
		return name
	}
	return r.Fallback
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.BaseURL) == "" {
		return fmt.Errorf("llm.base_url required")
	}
	if l.Routing.Fallback == "" {
		return fmt.Errorf("llm.routing.fallback required")
	}
	return nil
}

// ToolsConfig contains per-tool adapter settings
type ToolsConfig struct {
	Weather   WeatherConfig   `mapstructure:"weather"`
	NewsAPI   NewsAPIConfig   `mapstructure:"newsapi"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	OMDb      OMDbConfig      `mapstructure:"omdb"`
	Arxiv     ArxivConfig     `mapstructure:"arxiv"`
	Magnet    MagnetConfig    `mapstructure:"magnet"`
	ReadPage  ReadPageConfig  `mapstructure:"read_page"`
	Documents DocumentsConfig `mapstructure:"documents"`
}

// WeatherConfig contains OpenWeatherMap settings
type WeatherConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// NewsAPIConfig contains NewsAPI settings
type NewsAPIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// WebSearchConfig contains web search settings
type WebSearchConfig struct {
	Provider     string        `mapstructure:"provider"` // brave or serper
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// OMDbConfig contains OMDb movie lookup settings
type OMDbConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ArxivConfig contains arXiv search settings
type ArxivConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// MagnetConfig contains torrent metadata lookup settings
type MagnetConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// ReadPageConfig contains headless page fetch settings
type ReadPageConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// DocumentsConfig contains local document index settings
type DocumentsConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	IndexPath string `mapstructure:"index_path"`
	TopK      int    `mapstructure:"top_k"`
}

// StorageConfig contains chat persistence settings
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // file, postgres or redis
	File     FileConfig     `mapstructure:"file"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

func (s StorageConfig) Validate() error {
	switch s.Driver {
	case "", "file":
		return nil
	case "postgres":
		return s.Postgres.Validate()
	case "redis":
		return s.Redis.Validate()
	default:
		return fmt.Errorf("storage.driver must be file, postgres or redis (got %q)", s.Driver)
	}
}

// FileConfig contains file storage settings
type FileConfig struct {
	ChatDir string `mapstructure:"chat_dir"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from the configured parts.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.default_timeout", "2m")
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.retention.cron_spec", "@hourly")
	viper.SetDefault("llm.base_url", "http://localhost:11434")
	viper.SetDefault("llm.timeout", "2m")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.history_turns", 3)
	viper.SetDefault("llm.routing.fallback", "qwen2.5")
	viper.SetDefault("tools.weather.endpoint", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("tools.newsapi.endpoint", "https://newsapi.org/v2/everything")
	viper.SetDefault("tools.newsapi.max_results", 5)
	viper.SetDefault("tools.web_search.provider", "serper")
	viper.SetDefault("tools.web_search.max_results", 5)
	viper.SetDefault("tools.omdb.endpoint", "https://www.omdbapi.com/")
	viper.SetDefault("tools.arxiv.endpoint", "http://export.arxiv.org/api/query")
	viper.SetDefault("tools.arxiv.max_results", 3)
	viper.SetDefault("tools.magnet.endpoint", "https://apibay.org/q.php")
	viper.SetDefault("tools.magnet.max_results", 5)
	viper.SetDefault("tools.read_page.timeout", "15s")
	viper.SetDefault("tools.read_page.max_chars", 20000)
	viper.SetDefault("tools.documents.top_k", 4)
	viper.SetDefault("storage.driver", "file")
	viper.SetDefault("storage.file.chat_dir", "chat_history")
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config") // path to look for the config file in
		viper.AddConfigPath(".")        // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                      // bin/
		viper.AddConfigPath(filepath.Join(exeDir, "..")) // repo root
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NOVA")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (NOVA_*)

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional; env vars and defaults are enough to run
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Validate(); err != nil {
		panic(err)
	}
	if err := config.Server.Retention.Validate(); err != nil {
		panic(err)
	}
	return &config
}
