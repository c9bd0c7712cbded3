package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type OCRConfig struct {
	Language       string
	TessdataPrefix string
}

type KafkaConfig struct {
	BootstrapServers string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	Topic            string
}

type R2Config struct {
	Endpoint      string
	AccessKeyID   string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
}

type Config struct {
	Environment         string
	LogLevel            string
	HTTP                HTTPConfig
	DB                  DBConfig
	Auth                AuthConfig
	OCR                 OCRConfig
	Kafka               KafkaConfig
	R2                  R2Config
	DetectionLogEnabled bool
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()
	v.SetDefault("DETECTION_LOG_ENABLED", true)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		OCR: OCRConfig{
			Language:       v.GetString("OCR_LANGUAGE"),
			TessdataPrefix: v.GetString("OCR_TESSDATA_PREFIX"),
		},
		Kafka: KafkaConfig{
			BootstrapServers: v.GetString("KAFKA_BOOTSTRAP_SERVERS"),
			SecurityProtocol: v.GetString("KAFKA_SECURITY_PROTOCOL"),
			SASLMechanism:    v.GetString("KAFKA_SASL_MECHANISM"),
			SASLUsername:     v.GetString("KAFKA_SASL_USERNAME"),
			SASLPassword:     v.GetString("KAFKA_SASL_PASSWORD"),
			Topic:            v.GetString("KAFKA_TOPIC"),
		},
		R2: R2Config{
			Endpoint:      v.GetString("R2_ENDPOINT"),
			AccessKeyID:   v.GetString("R2_ACCESS_KEY_ID"),
			SecretKey:     v.GetString("R2_SECRET_ACCESS_KEY"),
			Bucket:        v.GetString("R2_BUCKET"),
			Region:        v.GetString("R2_REGION"),
			PublicBaseURL: v.GetString("R2_PUBLIC_BASE_URL"),
		},
		DetectionLogEnabled: v.GetBool("DETECTION_LOG_ENABLED"),
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.Kafka.SecurityProtocol == "" {
		cfg.Kafka.SecurityProtocol = "PLAINTEXT"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "plate-outcomes"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	return nil
}

// ValidateServer checks the settings only the HTTP service needs.
func (c *Config) ValidateServer() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}
