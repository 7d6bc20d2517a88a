package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	SejmAPI  SejmAPIConfig
	OCR      OCRConfig
	Analysis AnalysisConfig
}

// StorageConfig holds database-related configuration
type StorageConfig struct {
	DataDir string
}

// SejmAPIConfig holds upstream Parliament API configuration
type SejmAPIConfig struct {
	BaseURL         string
	Term            int
	Proceeding      int
	Timeout         time.Duration
	DownloadTimeout time.Duration
	RequestsPerSec  float64
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	CacheDir   string
	DPI        int
	Language   string
	MinTextLen int
	MaxPages   int
	Pdftoppm   string
	Tesseract  string
}

// AnalysisConfig holds AI-analysis collaborator configuration
type AnalysisConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		SejmAPI: SejmAPIConfig{
			BaseURL:         getEnv("SEJM_API_BASE", "https://api.sejm.gov.pl/sejm"),
			Term:            getEnvAsInt("SEJM_TERM", 10),
			Proceeding:      getEnvAsInt("SEJM_PROCEEDING", 0),
			Timeout:         getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
			DownloadTimeout: getEnvAsDuration("DOWNLOAD_TIMEOUT", 60*time.Second),
			RequestsPerSec:  getEnvAsFloat64("SEJM_API_RPS", 5.0),
		},
		OCR: OCRConfig{
			CacheDir:   getEnv("OCR_CACHE_DIR", "./ocr_cache"),
			DPI:        getEnvAsInt("OCR_DPI", 300),
			Language:   getEnv("OCR_LANG", "pol"),
			MinTextLen: getEnvAsInt("OCR_MIN_TEXT_LEN", 50),
			MaxPages:   getEnvAsInt("OCR_MAX_PAGES", 0),
			Pdftoppm:   getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:  getEnv("TESSERACT", "tesseract"),
		},
		Analysis: AnalysisConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.7),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
