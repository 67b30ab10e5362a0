package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"resq/internal/models"
)

type GoogleMapsProvider struct {
	client   *maps.Client
	language string
}

func NewGoogleMapsProvider(apiKey string, options ...maps.ClientOption) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

// WithLanguage sets the language of returned place names.
func (g *GoogleMapsProvider) WithLanguage(language string) *GoogleMapsProvider {
	g.language = language
	return g
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	req := &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: lat, Lng: lng},
		Language: g.language,
	}

	resp, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if len(resp) == 0 {
		return nil, nil
	}

	addr := &models.Address{FullAddress: resp[0].FormattedAddress}
	for _, result := range resp {
		for _, component := range result.AddressComponents {
			for _, t := range component.Types {
				switch t {
				case "locality", "administrative_area_level_2":
					if addr.City == "" {
						addr.City = component.LongName
					}
				case "sublocality_level_1", "sublocality", "neighborhood":
					if addr.Barangay == "" {
						addr.Barangay = component.LongName
					}
				}
			}
		}
	}
	return addr, nil
}
