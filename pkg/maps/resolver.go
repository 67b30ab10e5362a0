package maps

import (
	"context"
	"time"

	"resq/internal/models"
	"resq/pkg/logger"
)

// Resolver bounds every lookup by a timeout and never fails: errors and
// timeouts resolve to nil so callers fall back to raw coordinates.
type Resolver struct {
	geocoder ReverseGeocoder
	timeout  time.Duration
	log      *logger.Logger
}

func NewResolver(geocoder ReverseGeocoder, timeout time.Duration, log *logger.Logger) *Resolver {
	if geocoder == nil {
		geocoder = Noop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{geocoder: geocoder, timeout: timeout, log: log.WithComponent("geocoder")}
}

func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) *models.Address {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type result struct {
		addr *models.Address
		err  error
	}
	done := make(chan result, 1)
	go func() {
		addr, err := r.geocoder.ReverseGeocode(ctx, lat, lng)
		done <- result{addr, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			r.log.WithError(res.err).Warn("Reverse geocoding failed")
			return nil
		}
		if res.addr.IsEmpty() {
			return nil
		}
		return res.addr
	case <-ctx.Done():
		r.log.Warnf("Reverse geocoding gave up after %s", r.timeout)
		return nil
	}
}
