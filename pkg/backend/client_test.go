package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resq/internal/gateway"
	"resq/internal/models"
)

const testBaseURL = "https://project.backend.test"

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return NewClient(&Config{
		URL:        testBaseURL + "/",
		AnonKey:    "anon-key",
		HTTPClient: httpClient,
	}, nil)
}

func TestQueryBuildsFilters(t *testing.T) {
	c := newMockedClient(t)

	var got url.Values
	var headers http.Header
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/rest/v1/tbl_reports",
		func(req *http.Request) (*http.Response, error) {
			got = req.URL.Query()
			headers = req.Header.Clone()
			return httpmock.NewStringResponse(http.StatusOK, `[{"report_id": 9007199254740993, "status": "pending"}]`), nil
		})

	rows, err := c.Query(context.Background(), &gateway.Query{
		Table:   gateway.TableReports,
		Columns: []string{"report_id", "status"},
		Filters: []gateway.Filter{
			gateway.Eq("reporter_id", "u1"),
			gateway.In("status", "pending", "en route"),
		},
		Order: []gateway.Order{{Column: "created_at", Descending: true}},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "report_id,status", got.Get("select"))
	assert.Equal(t, "eq.u1", got.Get("reporter_id"))
	assert.Equal(t, "in.(pending,en route)", got.Get("status"))
	assert.Equal(t, "created_at.desc.nullslast", got.Get("order"))
	assert.Equal(t, "1", got.Get("limit"))

	assert.Equal(t, "anon-key", headers.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", headers.Get("Authorization"))
	assert.Equal(t, "public", headers.Get("Accept-Profile"))

	// Large ids survive decoding without float rounding.
	assert.Equal(t, "9007199254740993", models.RowString(rows[0], "report_id"))
}

func TestQueryUsesSessionToken(t *testing.T) {
	c := newMockedClient(t)
	c.SetSession("user-token", "")

	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/tbl_media`,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, `[]`), nil
		})

	rows, err := c.Query(context.Background(), &gateway.Query{Table: gateway.TableMedia})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateSendsPatch(t *testing.T) {
	c := newMockedClient(t)

	var body map[string]interface{}
	httpmock.RegisterResponder(http.MethodPatch, `=~^`+testBaseURL+`/rest/v1/tbl_reports`,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "eq.42", req.URL.Query().Get("report_id"))
			assert.Equal(t, "return=minimal", req.Header.Get("Prefer"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	err := c.Update(context.Background(), gateway.TableReports,
		[]gateway.Filter{gateway.Eq("report_id", "42")},
		gateway.Row{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, "closed", body["status"])
}

func TestMutationsRequireFilters(t *testing.T) {
	c := newMockedClient(t)

	require.Error(t, c.Update(context.Background(), gateway.TableReports, nil, gateway.Row{"status": "closed"}))
	require.Error(t, c.Delete(context.Background(), gateway.TableMedia, nil))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, gateway.ErrUnauthorized},
		{"not_found", http.StatusNotFound, gateway.ErrNotFound},
		{"conflict", http.StatusConflict, gateway.ErrConflict},
		{"unavailable", http.StatusBadGateway, gateway.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockedClient(t)
			httpmock.RegisterResponder(http.MethodDelete, `=~^`+testBaseURL+`/rest/v1/tbl_media`,
				httpmock.NewStringResponder(tt.status, `{"code":"X1","message":"nope"}`))

			err := c.Delete(context.Background(), gateway.TableMedia, []gateway.Filter{gateway.Eq("report_id", "1")})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *gateway.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "nope", apiErr.Message)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestErrorBodyNotJSON(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/tbl_reports`,
		httpmock.NewStringResponder(http.StatusBadGateway, `<html>bad gateway</html>`))

	_, err := c.Query(context.Background(), &gateway.Query{Table: gateway.TableReports})
	require.Error(t, err)
	assert.True(t, gateway.IsNetworkFailure(err))

	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestCancelledContextIsNotNetworkFailure(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/tbl_reports`,
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Query(ctx, &gateway.Query{Table: gateway.TableReports})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, gateway.IsNetworkFailure(err))
}

func TestTransportFailureIsNetworkFailure(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/rest/v1/tbl_reports`,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Query(context.Background(), &gateway.Query{Table: gateway.TableReports})
	require.Error(t, err)
	assert.True(t, gateway.IsNetworkFailure(err))
}

func TestCallProcedureResultShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"report_id": 17, "assigned_office_id": 3, "assigned_office_name": "Station 3"}`},
		{"array", `[{"report_id": 17, "assigned_office_id": 3, "assigned_office_name": "Station 3"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockedClient(t)
			httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/rest/v1/rpc/create_emergency_sos",
				httpmock.NewStringResponder(http.StatusOK, tt.body))

			var out struct {
				ReportID           json.Number `json:"report_id"`
				AssignedOfficeName string      `json:"assigned_office_name"`
			}
			err := c.CallProcedure(context.Background(), gateway.ProcedureCreateEmergencySOS,
				map[string]interface{}{"p_user_id": "u1"}, &out)
			require.NoError(t, err)
			assert.Equal(t, "17", out.ReportID.String())
			assert.Equal(t, "Station 3", out.AssignedOfficeName)
		})
	}
}

func TestCallProcedureErrorStatus(t *testing.T) {
	c := newMockedClient(t)
	c.SetSession("user-token", "")
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/rest/v1/rpc/create_emergency_sos",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer user-token", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{"code":"PGRST301","message":"JWT expired"}`), nil
		})

	var out map[string]interface{}
	err := c.CallProcedure(context.Background(), gateway.ProcedureCreateEmergencySOS,
		map[string]interface{}{"p_user_id": "u1"}, &out)
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Contains(t, err.Error(), "JWT expired")
}

func TestInsertSendsRows(t *testing.T) {
	c := newMockedClient(t)

	var body []map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/rest/v1/tbl_media",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "return=minimal", req.Header.Get("Prefer"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

	err := c.Insert(context.Background(), gateway.TableMedia,
		gateway.Row{"report_id": "42", "file_url": "https://cdn.test/report-media/reports/42/a.jpg"})
	require.NoError(t, err)
	require.Len(t, body, 1)
	assert.Equal(t, "42", body[0]["report_id"])
}

func TestCallProcedureEmptyArray(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/rest/v1/rpc/create_emergency_sos",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	var out map[string]interface{}
	err := c.CallProcedure(context.Background(), gateway.ProcedureCreateEmergencySOS, nil, &out)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

type recordingStore struct {
	deleted []string
}

func (s *recordingStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func TestRemoveObject(t *testing.T) {
	t.Run("backend storage api", func(t *testing.T) {
		c := newMockedClient(t)
		httpmock.RegisterResponder(http.MethodDelete,
			testBaseURL+"/storage/v1/object/report-media/reports/42/photo.jpg",
			httpmock.NewStringResponder(http.StatusOK, `{}`))

		require.NoError(t, c.RemoveObject(context.Background(), "report-media", "/reports/42/photo.jpg"))
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})

	t.Run("object store override", func(t *testing.T) {
		c := newMockedClient(t)
		store := &recordingStore{}
		c.WithObjectStore(store)

		require.NoError(t, c.RemoveObject(context.Background(), "report-media", "reports/42/x.jpg"))
		assert.Equal(t, []string{"reports/42/x.jpg"}, store.deleted)
		assert.Zero(t, httpmock.GetTotalCallCount())
	})
}

func TestUploadObjectReturnsPublicURL(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/storage/v1/object/report-media/reports/1/p.png",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "image/png", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(http.StatusOK, `{"Key":"report-media/reports/1/p.png"}`), nil
		})

	u, err := c.UploadObject(context.Background(), "report-media", "reports/1/p.png", nil, "image/png")
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/storage/v1/object/public/report-media/reports/1/p.png", u)
}

func TestDefaultRealtimeURL(t *testing.T) {
	assert.Equal(t, "wss://x.test/realtime/v1/websocket", defaultRealtimeURL("https://x.test"))
	assert.Equal(t, "ws://localhost:54321/realtime/v1/websocket", defaultRealtimeURL("http://localhost:54321"))
}
