package config

import (
	"net/url"
	"os"
	"praid/internal/logger"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	StaticDir            string `mapstructure:"STATIC_DIR"`
	FileIngestorURL      string `mapstructure:"FILEINGESTOR_URL"`
	SearchEngineURL      string `mapstructure:"SEARCHENGINE_URL"`
	LLMAgentURL          string `mapstructure:"LLMAGENT_URL"`
	KnowledgeBaseURL     string `mapstructure:"KNOWLEDGEBASE_URL"`
	EasyOCRURL           string `mapstructure:"EASYOCR_URL"`
	OllamaURL            string `mapstructure:"OLLAMA_URL"`
	WebInterfaceURL      string `mapstructure:"WEBINTERFACE_URL"`
	HealthTreeFile       string `mapstructure:"HEALTH_TREE_FILE"`
	HealthPollSeconds    int    `mapstructure:"HEALTH_POLL_SECONDS"`
	HealthTimeoutSeconds int    `mapstructure:"HEALTH_TIMEOUT_SECONDS"`
	RequestTimeoutSecs   int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	SearchDefaultResults int    `mapstructure:"SEARCH_DEFAULT_RESULTS"`
	SearchMaxResults     int    `mapstructure:"SEARCH_MAX_RESULTS"`
	UploadMaxBytes       int    `mapstructure:"UPLOAD_MAX_BYTES"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`
	LogSinkURL           string `mapstructure:"LOG_SINK_URL"`
}

var envVars = []string{
	"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "CORS_ALLOW_ORIGINS", "STATIC_DIR",
	"FILEINGESTOR_URL", "SEARCHENGINE_URL", "LLMAGENT_URL", "KNOWLEDGEBASE_URL",
	"EASYOCR_URL", "OLLAMA_URL", "WEBINTERFACE_URL",
	"HEALTH_TREE_FILE", "HEALTH_POLL_SECONDS", "HEALTH_TIMEOUT_SECONDS", "REQUEST_TIMEOUT_SECONDS",
	"SEARCH_DEFAULT_RESULTS", "SEARCH_MAX_RESULTS", "UPLOAD_MAX_BYTES",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
	"SCHEDULER_ENABLED", "LOG_SINK_URL",
}

// Defaults match the docker-compose service names of the platform.
func setDefaults(v *viper.Viper) {
	v.SetDefault("GENERAL_VERSION", "dev")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("STATIC_DIR", "./static")
	v.SetDefault("FILEINGESTOR_URL", "http://fileingestor:8000")
	v.SetDefault("SEARCHENGINE_URL", "http://searchengine:8000")
	v.SetDefault("LLMAGENT_URL", "http://llmagent:8000")
	v.SetDefault("KNOWLEDGEBASE_URL", "http://knowledgebase:8000")
	v.SetDefault("EASYOCR_URL", "http://easyocr:8000")
	v.SetDefault("OLLAMA_URL", "http://ollama:11434")
	v.SetDefault("HEALTH_POLL_SECONDS", 30)
	v.SetDefault("HEALTH_TIMEOUT_SECONDS", 5)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
	v.SetDefault("SEARCH_DEFAULT_RESULTS", 10)
	v.SetDefault("SEARCH_MAX_RESULTS", 50)
	v.SetDefault("UPLOAD_MAX_BYTES", 50*1024*1024)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_CACHE_PORT", 6379)
	v.SetDefault("DB_CACHE_RESET", -1)
	v.SetDefault("SCHEDULER_ENABLED", true)
}

func New() (Config, error) {
	return Load(viper.New())
}

// Load reads configuration through v. Environment variables win; when the server port
// is not present in the environment, .env and .env.local are merged in.
func Load(v *viper.Viper) (Config, error) {
	log := logger.New("config").Function("Load")
	log.Info("Initializing config")

	setDefaults(v)
	v.AutomaticEnv()

	for _, env := range envVars {
		if err := v.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	_, portSet := os.LookupEnv("SERVER_PORT")
	if !portSet {
		log.Info("Environment variables not found, attempting to load from files")

		v.SetConfigFile(".env")
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		v.SetConfigFile(".env.local")
		if err := v.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	if err := Validate(config); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"fileingestor", config.FileIngestorURL,
		"searchengine", config.SearchEngineURL,
		"llmagent", config.LLMAgentURL,
	)
	return config, nil
}

// Validate checks the values the console cannot start without.
func Validate(config Config) error {
	log := logger.New("config").Function("Validate")

	if config.ServerPort <= 0 {
		return log.Error("Fatal error: invalid server port", "port", config.ServerPort)
	}

	services := map[string]string{
		"FILEINGESTOR_URL":  config.FileIngestorURL,
		"SEARCHENGINE_URL":  config.SearchEngineURL,
		"LLMAGENT_URL":      config.LLMAgentURL,
		"KNOWLEDGEBASE_URL": config.KnowledgeBaseURL,
	}
	for key, raw := range services {
		if raw == "" {
			return log.Error("Fatal error: service url is required", "key", key)
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return log.Error("Fatal error: invalid service url", "key", key, "value", raw)
		}
	}

	if config.SearchDefaultResults <= 0 || config.SearchMaxResults < config.SearchDefaultResults {
		return log.Error(
			"Fatal error: invalid search result limits",
			"default", config.SearchDefaultResults,
			"max", config.SearchMaxResults,
		)
	}

	return nil
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func (c Config) HasDatabase() bool {
	return c.DatabaseHost != "" && c.DatabaseName != ""
}

func (c Config) HasCache() bool {
	return c.DatabaseCacheAddress != "" && c.DatabaseCachePort > 0
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c Config) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSeconds) * time.Second
}

func (c Config) HealthPollInterval() time.Duration {
	return time.Duration(c.HealthPollSeconds) * time.Second
}
