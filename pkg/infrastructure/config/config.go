package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Tracing  TracingConfig
	Planning PlanningConfig
}

type ServerConfig struct {
	AppEnv       string
	HTTPAddr     string
	RunCacheSize int
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type TracingConfig struct {
	ServiceName  string
	OTLPEndpoint string
	OTLPInsecure bool
	Stdout       bool
	SampleRatio  float64
}

type PlanningConfig struct {
	PolicyFile string
	Workers    int
}

// Load reads an optional .env file and then the process environment
func Load() *Config {
	_ = godotenv.Load()
	return LoadEnv()
}

// LoadEnv builds the process configuration from environment variables
func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:       getEnv("APP_ENV", "dev"),
			HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
			RunCacheSize: getEnvInt("RUN_CACHE_SIZE", 50),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Tracing: TracingConfig{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "prodplan"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			Stdout:       getEnvBool("TRACE_STDOUT", false),
			SampleRatio:  getEnvFloat("OTEL_SAMPLER_RATIO", 1),
		},
		Planning: PlanningConfig{
			PolicyFile: getEnv("PLANNING_POLICY_FILE", ""),
			Workers:    getEnvInt("PLANNER_WORKERS", 0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}
