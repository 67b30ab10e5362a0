package maps

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

const googleReverseResponse = `{
  "status": "OK",
  "results": [
    {
      "formatted_address": "Ayala Ave, Makati, Metro Manila, Philippines",
      "address_components": [
        {"long_name": "Ayala Avenue", "short_name": "Ayala Ave", "types": ["route"]},
        {"long_name": "San Lorenzo", "short_name": "San Lorenzo", "types": ["sublocality_level_1", "sublocality", "political"]},
        {"long_name": "Makati", "short_name": "Makati", "types": ["locality", "political"]}
      ]
    }
  ]
}`

func TestGoogleReverseGeocode(t *testing.T) {
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, `=~^https://maps\.googleapis\.com/maps/api/geocode/json`,
		httpmock.NewStringResponder(http.StatusOK, googleReverseResponse))

	g, err := NewGoogleMapsProvider("AIza-test", maps.WithHTTPClient(httpClient))
	require.NoError(t, err)

	addr, err := g.ReverseGeocode(context.Background(), 14.5547, 121.0244)
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "Makati", addr.City)
	assert.Equal(t, "San Lorenzo", addr.Barangay)
	assert.Equal(t, "Ayala Ave, Makati, Metro Manila, Philippines", addr.FullAddress)
}
