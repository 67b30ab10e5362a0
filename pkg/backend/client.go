package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"resq/internal/gateway"
	"resq/pkg/logger"
)

type Config struct {
	URL               string
	AnonKey           string
	JWTSecret         string
	RealtimeURL       string
	Timeout           time.Duration
	HeartbeatInterval time.Duration
	ReconnectMin      time.Duration
	ReconnectMax      time.Duration
	HTTPClient        *http.Client
}

// ObjectStore overrides where RemoveObject deletes blobs.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
}

// Client talks to a PostgREST backend with the auth, realtime and storage
// services mounted under the same base URL. Table and procedure calls go
// through postgrest-go; auth and storage use plain requests.
type Client struct {
	baseURL    string
	anonKey    string
	jwtSecret  []byte
	httpClient *http.Client
	timeout    time.Duration
	objects    ObjectStore
	realtime   *realtimeClient
	log        *logger.Logger
	now        func() time.Time

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

var _ gateway.Gateway = (*Client)(nil)

func NewClient(config *Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(config.URL, "/"),
		anonKey:    config.AnonKey,
		httpClient: httpClient,
		timeout:    timeout,
		log:        log.WithComponent("backend"),
		now:        time.Now,
	}
	if config.JWTSecret != "" {
		c.jwtSecret = []byte(config.JWTSecret)
	}

	realtimeURL := config.RealtimeURL
	if realtimeURL == "" {
		realtimeURL = defaultRealtimeURL(c.baseURL)
	}
	c.realtime = newRealtimeClient(realtimeURL, c.anonKey, c.currentToken, config, c.log)
	return c
}

func (c *Client) WithObjectStore(store ObjectStore) *Client {
	c.objects = store
	return c
}

func (c *Client) Subscribe(ctx context.Context, table string, onEvent func(gateway.ChangeEvent)) (func(), error) {
	return c.realtime.subscribe(ctx, table, onEvent)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", gateway.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	return decodeBody(data, out)
}

// decodeBody keeps numbers as json.Number so large ids survive.
func decodeBody(data []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	token := c.currentToken()
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &gateway.APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		var alt struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
			Msg              string `json:"msg"`
		}
		if json.Unmarshal(body, &alt) == nil {
			apiErr.Message = firstNonEmpty(alt.ErrorDescription, alt.Msg, alt.Error)
			if apiErr.Code == "" {
				apiErr.Code = alt.Error
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultRealtimeURL(base string) string {
	u := base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/realtime/v1/websocket"
}
