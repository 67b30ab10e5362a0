package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Logging   *LoggingConfig   `yaml:"logging"`
	Backend   *BackendConfig   `yaml:"backend"`
	Case      *CaseConfig      `yaml:"case"`
	Redis     *RedisConfig     `yaml:"redis"`
	SMS       *SMSConfig       `yaml:"sms"`
	Maps      *MapsConfig      `yaml:"maps"`
	Storage   *StorageConfig   `yaml:"storage"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
	Location  *LocationConfig  `yaml:"location"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	Timezone    string `yaml:"timezone"`
	// BridgeToken, when set, must be presented as a bearer token by the UI
	// shell on every bridge request.
	BridgeToken string `yaml:"bridge_token"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	TimeFormat string `yaml:"time_format"`
	Caller     bool   `yaml:"caller"`
	Colors     bool   `yaml:"colors"`
}

// LocationConfig seeds the static location source used when the client
// runs without a device position provider.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Accuracy  float64 `yaml:"accuracy"`
}

func Load() (*Config, error) {
	config := &Config{
		App:       loadAppConfig(),
		Logging:   loadLoggingConfig(),
		Backend:   loadBackendConfig(),
		Case:      loadCaseConfig(),
		Redis:     loadRedisConfig(),
		SMS:       loadSMSConfig(),
		Maps:      loadMapsConfig(),
		Storage:   loadStorageConfig(),
		WebSocket: loadWebSocketConfig(),
		Location:  loadLocationConfig(),
	}

	if err := config.Backend.validate(); err != nil {
		return nil, err
	}
	if err := config.Case.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "resq"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "127.0.0.1"),
		Debug:       getEnvAsBool("APP_DEBUG", false),
		Timezone:    getEnv("APP_TIMEZONE", "Asia/Manila"),
		BridgeToken: getEnv("APP_BRIDGE_TOKEN", ""),
	}
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "text"),
		Output:     getEnv("LOG_OUTPUT", "stderr"),
		TimeFormat: getEnv("LOG_TIME_FORMAT", time.RFC3339),
		Caller:     getEnvAsBool("LOG_CALLER", false),
		Colors:     getEnvAsBool("LOG_COLORS", false),
	}
}

func loadLocationConfig() *LocationConfig {
	return &LocationConfig{
		Latitude:  getEnvAsFloat64("LOCATION_LATITUDE", 0),
		Longitude: getEnvAsFloat64("LOCATION_LONGITUDE", 0),
		Accuracy:  getEnvAsFloat64("LOCATION_ACCURACY", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func IsProduction() bool {
	return getEnv("APP_ENV", "development") == "production"
}

func IsDevelopment() bool {
	return getEnv("APP_ENV", "development") == "development"
}

func IsTest() bool {
	return getEnv("APP_ENV", "development") == "test"
}
