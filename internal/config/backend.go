package config

import (
	"fmt"
	"net/url"
	"time"
)

// BackendConfig describes the hosted database/realtime/storage service.
type BackendConfig struct {
	URL               string        `yaml:"url"`
	AnonKey           string        `yaml:"anon_key"`
	JWTSecret         string        `yaml:"jwt_secret"`
	RealtimeURL       string        `yaml:"realtime_url"`
	MediaBucket       string        `yaml:"media_bucket"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ReconnectMin      time.Duration `yaml:"reconnect_min"`
	ReconnectMax      time.Duration `yaml:"reconnect_max"`
	AccessToken       string        `yaml:"access_token"`
	RefreshToken      string        `yaml:"refresh_token"`
}

func loadBackendConfig() *BackendConfig {
	return &BackendConfig{
		URL:               getEnv("BACKEND_URL", "http://localhost:54321"),
		AnonKey:           getEnv("BACKEND_ANON_KEY", ""),
		JWTSecret:         getEnv("BACKEND_JWT_SECRET", ""),
		RealtimeURL:       getEnv("BACKEND_REALTIME_URL", ""),
		MediaBucket:       getEnv("BACKEND_MEDIA_BUCKET", "report-media"),
		RequestTimeout:    getEnvAsDuration("BACKEND_REQUEST_TIMEOUT", 15*time.Second),
		HeartbeatInterval: getEnvAsDuration("BACKEND_HEARTBEAT_INTERVAL", 30*time.Second),
		ReconnectMin:      getEnvAsDuration("BACKEND_RECONNECT_MIN", time.Second),
		ReconnectMax:      getEnvAsDuration("BACKEND_RECONNECT_MAX", 30*time.Second),
		AccessToken:       getEnv("BACKEND_ACCESS_TOKEN", ""),
		RefreshToken:      getEnv("BACKEND_REFRESH_TOKEN", ""),
	}
}

func (c *BackendConfig) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL %q", c.URL)
	}
	if c.MediaBucket == "" {
		return fmt.Errorf("BACKEND_MEDIA_BUCKET must not be empty")
	}
	return nil
}
