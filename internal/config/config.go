// Package config loads defaults from the environment and an optional .env file
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"burstpick/internal/models"
)

type Config struct {
	DBPath      string
	Settings    models.Settings
	BatchSize   int
	HashTimeout time.Duration
	LogLevel    string
	LogFormat   string
	Host        string
	Port        int
	Recursive   bool
}

// Load reads .env from the working directory if present, then the
// environment. Variables already set in the environment win over .env.
func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist
	return fromEnv()
}

func fromEnv() *Config {
	def := models.DefaultSettings()
	return &Config{
		DBPath: getEnv("BURSTPICK_DB", defaultDBPath()),
		Settings: models.Settings{
			TimeThresholdSeconds: getEnvFloat("BURSTPICK_TIME_THRESHOLD", def.TimeThresholdSeconds),
			SimilarityThreshold:  getEnvFloat("BURSTPICK_SIMILARITY", def.SimilarityThreshold),
			MinGroupSize:         getEnvInt("BURSTPICK_MIN_GROUP_SIZE", def.MinGroupSize),
		},
		BatchSize:   getEnvInt("BURSTPICK_BATCH_SIZE", 10),
		HashTimeout: getEnvDuration("BURSTPICK_HASH_TIMEOUT", 30*time.Second),
		LogLevel:    getEnv("BURSTPICK_LOG_LEVEL", ""),
		LogFormat:   getEnv("BURSTPICK_LOG_FORMAT", "text"),
		Host:        getEnv("BURSTPICK_HOST", "127.0.0.1"),
		Port:        getEnvInt("BURSTPICK_PORT", 8080),
		Recursive:   getEnvBool("BURSTPICK_RECURSIVE", false),
	}
}

func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".burstpick", "session.db")
	}
	return filepath.Join(homeDir, ".burstpick", "session.db")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}
