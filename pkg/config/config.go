package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Extraction ExtractionConfig
	Matching   MatchingConfig
	Prediction PredictionConfig
	Rewards    RewardsConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type ExtractionConfig struct {
	MinTextLength         int
	MaxBodySample         int
	MaxNouns              int
	MaxAdjectives         int
	MaxEntities           int
	MinFrequency          int
	MaxNounFrequency      int
	MaxAdjectiveFrequency int
	Scheme                string
	NounDivisor           float64
	AdjectiveDivisor      float64
	EntityRelevance       float64
	BatchSize             int
	IdleWaitSec           int
}

type MatchingConfig struct {
	DefaultLimit int
	CacheTTLSec  int
}

type PredictionConfig struct {
	MinOverlap int
	Weighting  string
}

type RewardsConfig struct {
	FullRewardCount int
	DecayUntilCount int
	FullAmount      float64
	FloorAmount     float64
	MinimalAmount   float64
	InitialPolicap  float64
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/senatai")

	viper.SetEnvPrefix("SENATAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/senatai.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("extraction.minTextLength", 100)
	viper.SetDefault("extraction.maxBodySample", 6000)
	viper.SetDefault("extraction.maxNouns", 15)
	viper.SetDefault("extraction.maxAdjectives", 8)
	viper.SetDefault("extraction.maxEntities", 6)
	viper.SetDefault("extraction.minFrequency", 2)
	viper.SetDefault("extraction.maxNounFrequency", 20)
	viper.SetDefault("extraction.maxAdjectiveFrequency", 15)
	viper.SetDefault("extraction.scheme", "simple")
	viper.SetDefault("extraction.nounDivisor", 4.0)
	viper.SetDefault("extraction.adjectiveDivisor", 4.0)
	viper.SetDefault("extraction.entityRelevance", 0.6)
	viper.SetDefault("extraction.batchSize", 10)
	viper.SetDefault("extraction.idleWaitSec", 30)

	viper.SetDefault("matching.defaultLimit", 6)
	viper.SetDefault("matching.cacheTTLSec", 600)

	viper.SetDefault("prediction.minOverlap", 1)
	viper.SetDefault("prediction.weighting", "frequency")

	viper.SetDefault("rewards.fullRewardCount", 100)
	viper.SetDefault("rewards.decayUntilCount", 250)
	viper.SetDefault("rewards.fullAmount", 1.0)
	viper.SetDefault("rewards.floorAmount", 0.1)
	viper.SetDefault("rewards.minimalAmount", 0.01)
	viper.SetDefault("rewards.initialPolicap", 25.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
