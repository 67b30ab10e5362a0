package config

// MapsConfig selects the reverse geocoder used to turn SOS coordinates into
// a readable address. Lookups are bounded by CaseConfig.GeocodeTimeout.
type MapsConfig struct {
	Provider   string            `yaml:"provider"`
	Language   string            `yaml:"language"`
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
	Mapbox     *MapboxConfig     `yaml:"mapbox"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key"`
}

type MapboxConfig struct {
	AccessToken string `yaml:"access_token"`
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider: getEnv("MAPS_PROVIDER", "mapbox"),
		Language: getEnv("MAPS_LANGUAGE", "en"),
		GoogleMaps: &GoogleMapsConfig{
			APIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		},
		Mapbox: &MapboxConfig{
			AccessToken: getEnv("MAPBOX_ACCESS_TOKEN", ""),
		},
	}
}
