package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"sauti/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configPathEnv     = "SAUTI_CONFIG"
)

type Config struct {
	App struct {
		Env   string `yaml:"env" env:"APP_ENV" env-default:"development"`
		Debug bool   `yaml:"debug" env:"APP_DEBUG"`
	} `yaml:"app"`

	HTTP struct {
		Addr           string        `yaml:"addr" env:"HTTP_ADDR" env-default:":3001"`
		AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
		RateLimit      int           `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"100"`
		RateWindow     time.Duration `yaml:"rate_window" env:"HTTP_RATE_WINDOW" env-default:"15m"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"HTTP_MAX_UPLOAD_BYTES" env-default:"10485760"`
	} `yaml:"http"`

	Telegram struct {
		Token string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	} `yaml:"telegram"`

	RabbitMQ struct {
		URL string `yaml:"url" env:"RABBITMQ_URL"`
	} `yaml:"rabbitmq"`

	OpenAI struct {
		APIKey  string        `yaml:"api_key" env:"OPENAI_API_KEY"`
		BaseURL string        `yaml:"base_url" env:"OPENAI_BASE_URL"`
		Model   string        `yaml:"model" env:"OPENAI_TRANSCRIBE_MODEL" env-default:"whisper-1"`
		Timeout time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"60s"`
	} `yaml:"openai"`

	S3 struct {
		Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
		Region    string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
		AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	} `yaml:"s3"`

	Redis struct {
		Addr      string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
		Password  string        `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
		ResultTTL time.Duration `yaml:"result_ttl" env:"REDIS_RESULT_TTL" env-default:"24h"`
	} `yaml:"redis"`

	Worker struct {
		Concurrency       int     `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
		MetricsAddr       string  `yaml:"metrics_addr" env:"WORKER_METRICS_ADDR" env-default:":9102"`
		RequestsPerSecond float64 `yaml:"requests_per_second" env:"WORKER_REQUESTS_PER_SECOND" env-default:"2"`
	} `yaml:"worker"`

	Tracker struct {
		HistorySize   int           `yaml:"history_size" env:"TRACKER_HISTORY_SIZE" env-default:"100"`
		SessionMaxAge time.Duration `yaml:"session_max_age" env:"TRACKER_SESSION_MAX_AGE" env-default:"24h"`
	} `yaml:"tracker"`

	WER struct {
		MaxWords int `yaml:"max_words" env:"WER_MAX_WORDS" env-default:"2000"`
	} `yaml:"wer"`
}

// IsDevelopment reports whether mock fallbacks are allowed.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, "development")
}

// Requirement names a dependency a binary cannot start without.
type Requirement int

const (
	RequireRabbitMQ Requirement = iota
	RequireS3
	RequireOpenAI
	RequireTelegram
)

// Validate checks that every required section is filled in.
func (c *Config) Validate(reqs ...Requirement) error {
	var errs []error
	for _, r := range reqs {
		switch r {
		case RequireRabbitMQ:
			if c.RabbitMQ.URL == "" {
				errs = append(errs, errors.New("rabbitmq.url (RABBITMQ_URL) is required"))
			}
		case RequireS3:
			if c.S3.Endpoint == "" || c.S3.Bucket == "" {
				errs = append(errs, errors.New("s3.endpoint and s3.bucket (S3_ENDPOINT, S3_BUCKET) are required"))
			}
		case RequireOpenAI:
			if c.OpenAI.APIKey == "" && !c.IsDevelopment() {
				errs = append(errs, errors.New("openai.api_key (OPENAI_API_KEY) is required outside development"))
			}
		case RequireTelegram:
			if c.Telegram.Token == "" {
				errs = append(errs, errors.New("telegram.token (TELEGRAM_BOT_TOKEN) is required"))
			}
		}
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
	}
	if c.Tracker.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("tracker.history_size must be positive, got %d", c.Tracker.HistorySize))
	}
	return errors.Join(errs...)
}

// LoadConfig reads the YAML file (SAUTI_CONFIG or configs/config.yaml) and
// applies environment overrides. A missing file falls back to environment
// variables and defaults only.
func LoadConfig() (*Config, error) {
	// Load .env file
	_ = godotenv.Load()

	path := os.Getenv(configPathEnv)
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	logger.Info("Config loaded successfully")
	return cfg, nil
}

// Load reads configuration from path, or from the environment alone when the
// file does not exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}
	return &cfg, nil
}
