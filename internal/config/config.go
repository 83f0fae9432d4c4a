package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Scheduler Scheduler `yaml:"scheduler"`
	OpenAI    OpenAI    `yaml:"openai"`
	Telegram  Telegram  `yaml:"telegram"`
	S3        S3        `yaml:"s3"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	MaxConns int `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns int `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
}

// Scheduler holds draft scheduler configuration. Disabled deployments rely
// on an external cron calling the process endpoint instead.
type Scheduler struct {
	Enabled  bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	Interval time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"1m"`
}

// OpenAI holds generation provider configuration
type OpenAI struct {
	BaseURL    string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey     string `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model      string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	ImageModel string `yaml:"image_model" env:"OPENAI_IMAGE_MODEL" env-default:"dall-e-3"`

	TextCostPer1K float64 `yaml:"text_cost_per_1k" env:"OPENAI_TEXT_COST_PER_1K" env-default:"0.002"`
	ImageCost     float64 `yaml:"image_cost" env:"OPENAI_IMAGE_COST" env-default:"0.04"`
}

// Telegram holds messaging-channel configuration
type Telegram struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
}

// S3 holds S3/MinIO storage configuration
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/media"`
}

// Pipeline holds draft pipeline tunables
type Pipeline struct {
	PlaceholderImageURL string `yaml:"placeholder_image_url" env:"PLACEHOLDER_IMAGE_URL" env-default:"https://placehold.co/1024x1024.png"`
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
