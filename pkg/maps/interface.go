package maps

import (
	"context"

	"resq/internal/models"
)

// ReverseGeocoder turns a coordinate pair into a human-readable address.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error)
}

// Noop never resolves anything; descriptions then keep raw coordinates.
type Noop struct{}

func (Noop) ReverseGeocode(context.Context, float64, float64) (*models.Address, error) {
	return nil, nil
}
