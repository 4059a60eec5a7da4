package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	JWTSecret        string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	APIKey           string `env:"API_KEY"`
	EncryptionSecret string `env:"ENCRYPTION_SECRET,required,notEmpty"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI" envDefault:"http://localhost:8080/api/auth/google/callback"`

	GoogleProjectID          string `env:"GOOGLE_PROJECT_ID"`
	GooglePubSubTopic        string `env:"GOOGLE_PUBSUB_TOPIC"`
	GooglePubSubSubscription string `env:"GOOGLE_PUBSUB_SUBSCRIPTION"`
	GoogleCredentialsFile    string `env:"GOOGLE_CREDENTIALS_FILE"`

	PushAudience string `env:"PUSH_AUDIENCE"`
	PushIssuer   string `env:"PUSH_ISSUER" envDefault:"https://accounts.google.com"`
	PushJWKSURL  string `env:"PUSH_JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`

	NATSURL             string `env:"NATS_URL"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`

	AIProvider    string `env:"AI_PROVIDER" envDefault:"auto"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	OllamaBaseURL string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel   string `env:"OLLAMA_MODEL" envDefault:"llama3.2"`

	SyncDefaultDays    int           `env:"SYNC_DEFAULT_DAYS" envDefault:"30"`
	WatchRenewInterval time.Duration `env:"WATCH_RENEW_INTERVAL" envDefault:"30m"`
}

// AgentConfig configures the background sync agent binary.
type AgentConfig struct {
	APIURL    string        `env:"SYNC_API_URL" envDefault:"http://localhost:8080"`
	APIKey    string        `env:"SYNC_API_KEY"`
	OwnerID   string        `env:"SYNC_OWNER_ID,required,notEmpty"`
	CachePath string        `env:"SYNC_CACHE_PATH" envDefault:"mailcache.db"`
	Interval  time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	Enhanced  bool          `env:"SYNC_ENHANCED" envDefault:"true"`
}

func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.SyncDefaultDays <= 0 {
		return nil, errors.New("SYNC_DEFAULT_DAYS must be positive")
	}
	return &cfg, nil
}

func LoadAgent() (*AgentConfig, error) {
	loadDotEnv()

	var cfg AgentConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func loadDotEnv() {
	// Load .env file if it exists
	_ = godotenv.Load()
}
