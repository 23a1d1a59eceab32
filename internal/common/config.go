package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig
	Media    MediaConfig
	Video    VideoConfig
	Store    StoreConfig
	Export   ExportConfig
}

// AnalysisConfig holds analysis-service-related configuration.
type AnalysisConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// MediaConfig holds still-image normalization configuration.
type MediaConfig struct {
	MaxDimension int // longer side bound after normalization
	JPEGQuality  int // 0..100
}

// VideoConfig holds frame sampling and extraction configuration.
type VideoConfig struct {
	SampleInterval   time.Duration // offset step during the sampling pass
	SampleMaxFrames  int           // hard cap on sampled frames
	SampleDimension  int           // longer side bound for sampled frames
	SampleQuality    int           // 0..100, low to keep the pass cheap
	SeekGrace        time.Duration // tolerated slack per seek beyond the expected decode time
	ExtractDimension int           // longer side bound for archival frames
	ExtractQuality   int           // 0..100
	ExtractTimeout   time.Duration // hard deadline per archival frame
	FFmpegPath       string
	FFprobePath      string
}

// StoreConfig holds local persistence configuration.
type StoreConfig struct {
	Path string // bbolt database file
}

// ExportConfig holds ledger export configuration.
type ExportConfig struct {
	Actor string // audit-column actor label for generated rows
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Media: MediaConfig{
			MaxDimension: getEnvAsInt("IMAGE_MAX_DIMENSION", 1024),
			JPEGQuality:  getEnvAsInt("IMAGE_JPEG_QUALITY", 90),
		},
		Video: VideoConfig{
			SampleInterval:   getEnvAsDuration("VIDEO_SAMPLE_INTERVAL", time.Second),
			SampleMaxFrames:  getEnvAsInt("VIDEO_SAMPLE_MAX_FRAMES", 45),
			SampleDimension:  getEnvAsInt("VIDEO_SAMPLE_DIMENSION", 800),
			SampleQuality:    getEnvAsInt("VIDEO_SAMPLE_QUALITY", 60),
			SeekGrace:        getEnvAsDuration("VIDEO_SEEK_GRACE", 500*time.Millisecond),
			ExtractDimension: getEnvAsInt("VIDEO_EXTRACT_DIMENSION", 600),
			ExtractQuality:   getEnvAsInt("VIDEO_EXTRACT_QUALITY", 80),
			ExtractTimeout:   getEnvAsDuration("VIDEO_EXTRACT_TIMEOUT", 20*time.Second),
			FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:      getEnv("FFPROBE_PATH", "ffprobe"),
		},
		Store: StoreConfig{
			Path: getEnv("STORE_PATH", "receipt-ledger.db"),
		},
		Export: ExportConfig{
			Actor: getEnv("EXPORT_ACTOR", "System"),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Analysis.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Media.MaxDimension <= 0 {
		return NewAppError("CONFIG_ERROR", "IMAGE_MAX_DIMENSION must be positive", ErrInvalidInput)
	}
	if c.Video.SampleInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "VIDEO_SAMPLE_INTERVAL must be positive", ErrInvalidInput)
	}
	if c.Video.SampleMaxFrames <= 0 {
		return NewAppError("CONFIG_ERROR", "VIDEO_SAMPLE_MAX_FRAMES must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
