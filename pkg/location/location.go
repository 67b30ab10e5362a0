// Package location provides device position sources for the SOS flow.
package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"resq/internal/models"
)

var ErrNoFix = errors.New("location: no position available")

type Accuracy int

const (
	AccuracyLow Accuracy = iota
	AccuracyHigh
)

type Locator interface {
	// LastKnown returns the cached position, or nil when none exists yet.
	LastKnown(ctx context.Context) (*models.Location, error)
	// Current waits for a fresh fix.
	Current(ctx context.Context, accuracy Accuracy) (*models.Location, error)
}

// Static always reports the same configured position.
type Static struct {
	loc *models.Location
}

func NewStatic(lat, lng, accuracy float64) *Static {
	if lat == 0 && lng == 0 {
		return &Static{}
	}
	return &Static{loc: &models.Location{Latitude: lat, Longitude: lng, Accuracy: accuracy}}
}

func (s *Static) LastKnown(context.Context) (*models.Location, error) {
	if s.loc == nil {
		return nil, nil
	}
	out := *s.loc
	out.Timestamp = time.Now()
	return &out, nil
}

func (s *Static) Current(ctx context.Context, _ Accuracy) (*models.Location, error) {
	if s.loc == nil {
		return nil, ErrNoFix
	}
	return s.LastKnown(ctx)
}

// Tracker holds positions pushed by the device shell. Current blocks until
// the next update arrives or ctx ends.
type Tracker struct {
	mu      sync.Mutex
	last    *models.Location
	waiters []chan models.Location
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Update(loc models.Location) {
	if loc.Timestamp.IsZero() {
		loc.Timestamp = time.Now()
	}

	t.mu.Lock()
	t.last = &loc
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()

	for _, w := range waiters {
		w <- loc
	}
}

func (t *Tracker) LastKnown(context.Context) (*models.Location, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil, nil
	}
	out := *t.last
	return &out, nil
}

func (t *Tracker) Current(ctx context.Context, _ Accuracy) (*models.Location, error) {
	ch := make(chan models.Location, 1)
	t.mu.Lock()
	t.waiters = append(t.waiters, ch)
	t.mu.Unlock()

	select {
	case loc := <-ch:
		return &loc, nil
	case <-ctx.Done():
		t.mu.Lock()
		for i, w := range t.waiters {
			if w == ch {
				t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
				break
			}
		}
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}
