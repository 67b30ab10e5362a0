package maps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"resq/internal/models"
)

type MapboxProvider struct {
	accessToken string
	language    string
	httpClient  *http.Client
	baseURL     string
}

func NewMapboxProvider(accessToken string) *MapboxProvider {
	return &MapboxProvider{
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     "https://api.mapbox.com",
	}
}

type mapboxContext struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type mapboxFeature struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	PlaceName string          `json:"place_name"`
	PlaceType []string        `json:"place_type"`
	Context   []mapboxContext `json:"context"`
}

// WithLanguage sets the language of returned place names.
func (m *MapboxProvider) WithLanguage(language string) *MapboxProvider {
	m.language = language
	return m
}

// Only the feature types that build an Address are requested.
const mapboxReverseTypes = "address,neighborhood,locality,place"

func (m *MapboxProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	query := url.Values{}
	query.Set("access_token", m.accessToken)
	query.Set("types", mapboxReverseTypes)
	if m.language != "" {
		query.Set("language", m.language)
	}
	apiURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?%s", m.baseURL, lng, lat, query.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapbox API error: %s", string(body))
	}

	var mapboxResp struct {
		Features []mapboxFeature `json:"features"`
	}
	if err := json.Unmarshal(body, &mapboxResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(mapboxResp.Features) == 0 {
		return nil, nil
	}

	addr := &models.Address{FullAddress: mapboxResp.Features[0].PlaceName}
	visit := func(kind, text string) {
		switch kind {
		case "place":
			if addr.City == "" {
				addr.City = text
			}
		case "locality", "neighborhood":
			if addr.Barangay == "" {
				addr.Barangay = text
			}
		}
	}
	for _, feature := range mapboxResp.Features {
		for _, t := range feature.PlaceType {
			visit(t, feature.Text)
		}
		for _, c := range feature.Context {
			kind, _, _ := strings.Cut(c.ID, ".")
			visit(kind, c.Text)
		}
	}
	return addr, nil
}
