package config

import (
	"fmt"
	"time"
)

// CaseConfig holds the timing knobs of the active-case tracker and the SOS
// dispatcher. Defaults match the mobile client's reference behaviour.
type CaseConfig struct {
	RefreshDebounce   time.Duration `yaml:"refresh_debounce"`
	NotificationLimit int           `yaml:"notification_limit"`
	SOSCountdown      time.Duration `yaml:"sos_countdown"`
	SOSCountdownTick  time.Duration `yaml:"sos_countdown_tick"`
	NavigateDelay     time.Duration `yaml:"navigate_delay"`
	GeocodeTimeout    time.Duration `yaml:"geocode_timeout"`
	LocationTimeout   time.Duration `yaml:"location_timeout"`
	Category          string        `yaml:"category"`
	LookupCacheTTL    time.Duration `yaml:"lookup_cache_ttl"`
}

func loadCaseConfig() *CaseConfig {
	return &CaseConfig{
		RefreshDebounce:   getEnvAsDuration("CASE_REFRESH_DEBOUNCE", 300*time.Millisecond),
		NotificationLimit: getEnvAsInt("CASE_NOTIFICATION_LIMIT", 20),
		SOSCountdown:      getEnvAsDuration("SOS_COUNTDOWN", 5*time.Second),
		SOSCountdownTick:  getEnvAsDuration("SOS_COUNTDOWN_TICK", time.Second),
		NavigateDelay:     getEnvAsDuration("SOS_NAVIGATE_DELAY", 300*time.Millisecond),
		GeocodeTimeout:    getEnvAsDuration("GEOCODE_TIMEOUT", 10*time.Second),
		LocationTimeout:   getEnvAsDuration("LOCATION_TIMEOUT", 15*time.Second),
		Category:          getEnv("SOS_CATEGORY", "Emergency"),
		LookupCacheTTL:    getEnvAsDuration("LOOKUP_CACHE_TTL", 10*time.Minute),
	}
}

func (c *CaseConfig) validate() error {
	if c.SOSCountdown <= 0 {
		return fmt.Errorf("SOS_COUNTDOWN must be positive")
	}
	if c.SOSCountdownTick <= 0 || c.SOSCountdownTick > c.SOSCountdown {
		return fmt.Errorf("SOS_COUNTDOWN_TICK must be within (0, SOS_COUNTDOWN]")
	}
	if c.NotificationLimit <= 0 {
		return fmt.Errorf("CASE_NOTIFICATION_LIMIT must be positive")
	}
	return nil
}
