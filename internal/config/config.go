package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for both the consumer and API binaries.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Sources   SourcesConfig   `mapstructure:"sources"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"` // sqlite file path
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	EmbedGroup  string   `mapstructure:"embed_group"`
	UploadGroup string   `mapstructure:"upload_group"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Dimension  int    `mapstructure:"dimension"`
}

type OllamaConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	EmbedModel     string        `mapstructure:"embed_model"`
	GenerateModel  string        `mapstructure:"generate_model"`
	EmbedRetries   int           `mapstructure:"embed_retries"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type StorageConfig struct {
	Provider       string `mapstructure:"provider"` // drive or s3
	RootFolder     string `mapstructure:"root_folder"`
	UserServiceURL string `mapstructure:"user_service_url"`

	// S3-compatible backend settings.
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type IngestConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"` // total per-file pipeline attempts
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	ChunkMaxWords int           `mapstructure:"chunk_max_words"`
	IdeaDeadline  time.Duration `mapstructure:"idea_deadline"`
	StagingDir    string        `mapstructure:"staging_dir"`
	ConvertedDir  string        `mapstructure:"converted_dir"`
	RapidAPIKey   string        `mapstructure:"rapidapi_key"`
}

type RetrievalConfig struct {
	TopK             int     `mapstructure:"top_k"`
	SummaryTopK      int     `mapstructure:"summary_top_k"`
	SummaryThreshold float32 `mapstructure:"summary_threshold"`
	FlushTokens      int     `mapstructure:"flush_tokens"`
}

type SourcesConfig struct {
	WebUserAgent string        `mapstructure:"web_user_agent"`
	WebTimeout   time.Duration `mapstructure:"web_timeout"`
}

// Load reads configuration from an optional file, the environment, and
// built-in defaults. A .env file is honored when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/ideas.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "idea-file-process")
	v.SetDefault("kafka.embed_group", "embed-group")
	v.SetDefault("kafka.upload_group", "drive-uploader-group")

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "idea-vault")
	v.SetDefault("qdrant.dimension", 768)

	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.embed_model", "nomic-embed-text")
	v.SetDefault("ollama.generate_model", "tinyllama")
	v.SetDefault("ollama.embed_retries", 3)
	v.SetDefault("ollama.request_timeout", 60*time.Second)

	v.SetDefault("storage.provider", "drive")
	v.SetDefault("storage.root_folder", "CogniDesk")
	v.SetDefault("storage.user_service_url", "http://localhost:3001")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("ingest.max_attempts", 3)
	v.SetDefault("ingest.retry_delay", time.Second)
	v.SetDefault("ingest.chunk_max_words", 300)
	v.SetDefault("ingest.idea_deadline", 10*time.Minute)
	v.SetDefault("ingest.staging_dir", "./public/uploads")
	v.SetDefault("ingest.converted_dir", "./public/converted")

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.summary_top_k", 20)
	v.SetDefault("retrieval.summary_threshold", 0.66)
	v.SetDefault("retrieval.flush_tokens", 5)

	v.SetDefault("sources.web_user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	v.SetDefault("sources.web_timeout", 60*time.Second)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("ollama.base_url", "OLLAMA_BASE_URL")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("ingest.rapidapi_key", "RAPIDAPI_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
