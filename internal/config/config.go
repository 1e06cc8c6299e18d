package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Retrain   RetrainConfig   `mapstructure:"retrain"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig selects the rating ledger backend. An empty URL keeps the
// ledger in memory.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig enables the recommendation list cache. An empty URL disables it.
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// KafkaConfig enables rating-event streaming. No brokers disables the bus.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		RatingEvents string `mapstructure:"rating_events"`
	} `mapstructure:"topics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ModelConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"`
	CatalogPath  string `mapstructure:"catalog_path"`
	CorpusPath   string `mapstructure:"corpus_path"`
}

type RecommendConfig struct {
	DefaultCount      int     `mapstructure:"default_count"`
	MaxCount          int     `mapstructure:"max_count"`
	LikedThreshold    float64 `mapstructure:"liked_threshold"`
	SimilarFanout     int     `mapstructure:"similar_fanout"`
	PopularMinRatings int     `mapstructure:"popular_min_ratings"`
}

type RetrainConfig struct {
	Factors       int           `mapstructure:"factors"`
	Epochs        int           `mapstructure:"epochs"`
	LearningRate  float64       `mapstructure:"learning_rate"`
	Regularize    float64       `mapstructure:"regularization"`
	HoldoutFrac   float64       `mapstructure:"holdout_fraction"`
	MinNewRatings int           `mapstructure:"min_new_ratings"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	// Kafka defaults
	viper.SetDefault("kafka.topics.rating_events", "rating-events")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Model defaults
	viper.SetDefault("model.artifact_path", "./models/svd_model.gob")
	viper.SetDefault("model.catalog_path", "./data/movies.dat")
	viper.SetDefault("model.corpus_path", "./data/ratings.dat")

	// Recommendation defaults
	viper.SetDefault("recommend.default_count", 10)
	viper.SetDefault("recommend.max_count", 50)
	viper.SetDefault("recommend.liked_threshold", 4.0)
	viper.SetDefault("recommend.similar_fanout", 20)
	viper.SetDefault("recommend.popular_min_ratings", 50)

	// Retrain defaults match the hyperparameters the active model was
	// fitted with unless a trigger request overrides them.
	viper.SetDefault("retrain.factors", 100)
	viper.SetDefault("retrain.epochs", 20)
	viper.SetDefault("retrain.learning_rate", 0.005)
	viper.SetDefault("retrain.regularization", 0.02)
	viper.SetDefault("retrain.holdout_fraction", 0.2)
	viper.SetDefault("retrain.min_new_ratings", 100)
	viper.SetDefault("retrain.check_interval", "0s")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
