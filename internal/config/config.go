package config

import (
	"os"
	"strconv"

	"pdf-workbench/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort         string
	UploadPath         string
	OutputPath         string
	MaxFileSize        int64
	MaxConcurrentJobs  int64
	OperationTimeout   int
	AdapterTimeout     int
	ArtifactTTLMinutes int
	LogLevel           string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:         getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		UploadPath:         getEnvOrDefault("UPLOAD_PATH", "./uploads"),
		OutputPath:         getEnvOrDefault("OUTPUT_PATH", "./outputs"),
		MaxFileSize:        getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB default
		MaxConcurrentJobs:  getEnvInt64OrDefault("MAX_CONCURRENT_JOBS", 8),
		OperationTimeout:   getEnvIntOrDefault("OPERATION_TIMEOUT_SEC", 120),
		AdapterTimeout:     getEnvIntOrDefault("ADAPTER_TIMEOUT_SEC", 60),
		ArtifactTTLMinutes: getEnvIntOrDefault("ARTIFACT_TTL_MIN", 60),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetUploadPath returns the upload directory path
func (c *AppConfig) GetUploadPath() string {
	return c.UploadPath
}

// GetOutputPath returns the output directory path
func (c *AppConfig) GetOutputPath() string {
	return c.OutputPath
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetMaxConcurrentJobs returns the in-flight operation bound
func (c *AppConfig) GetMaxConcurrentJobs() int64 {
	return c.MaxConcurrentJobs
}

// GetOperationTimeout returns the per-request wall-clock timeout in seconds
func (c *AppConfig) GetOperationTimeout() int {
	return c.OperationTimeout
}

// GetAdapterTimeout returns the external converter timeout in seconds
func (c *AppConfig) GetAdapterTimeout() int {
	return c.AdapterTimeout
}

// GetArtifactTTLMinutes returns how long stored artifacts are kept
func (c *AppConfig) GetArtifactTTLMinutes() int {
	return c.ArtifactTTLMinutes
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
