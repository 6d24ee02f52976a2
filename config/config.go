package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Database  Database
	AI        AI
	Retrieval Retrieval
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type AI struct {
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	RequestTimeout time.Duration
	EmbeddingDim   int
}

type Retrieval struct {
	TopK      int
	Threshold float64
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("AI_REQUEST_TIMEOUT", "30s")
	viper.SetDefault("EMBEDDING_DIM", 768)
	viper.SetDefault("RETRIEVAL_TOP_K", 5)
	viper.SetDefault("RETRIEVAL_THRESHOLD", 0.3)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.AI.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")
	config.AI.GeminiModel = viper.GetString("GEMINI_MODEL")
	config.AI.OpenAIAPIKey = viper.GetString("OPENAI_API_KEY")
	config.AI.OpenAIBaseURL = viper.GetString("OPENAI_BASE_URL")
	config.AI.OpenAIModel = viper.GetString("OPENAI_MODEL")
	config.AI.RequestTimeout = viper.GetDuration("AI_REQUEST_TIMEOUT")
	config.AI.EmbeddingDim = viper.GetInt("EMBEDDING_DIM")

	config.Retrieval.TopK = viper.GetInt("RETRIEVAL_TOP_K")
	config.Retrieval.Threshold = viper.GetFloat64("RETRIEVAL_THRESHOLD")

	log.Info().Str("server_port", config.Server.Port).Str("database_host", config.Database.Host).Msg("Config loaded")
	return &config, nil
}
