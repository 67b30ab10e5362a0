package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/supabase-community/postgrest-go"

	"resq/internal/gateway"
)

const restSchema = "public"

func (c *Client) Query(ctx context.Context, q *gateway.Query) ([]gateway.Row, error) {
	call, cancel := c.newRESTCall(ctx)
	defer cancel()

	rest, err := c.restClient(call)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, err)
	}

	builder := rest.From(q.Table).Select(strings.Join(q.Columns, ","), "", false)
	applyFilters(builder, q.Filters)
	for _, o := range q.Order {
		builder.Order(o.Column, &postgrest.OrderOpts{Ascending: !o.Descending})
	}
	if q.Limit > 0 {
		builder.Limit(q.Limit, "")
	}
	if rest.ClientError != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, rest.ClientError)
	}

	data, _, err := builder.ExecuteWithContext(call.ctx)
	if data, err = call.result(data, err); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, err)
	}

	var rows []gateway.Row
	if err := decodeBody(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, err)
	}
	return rows, nil
}

func (c *Client) Insert(ctx context.Context, table string, rows ...gateway.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return c.mutate(ctx, "insert into", table, func(from *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return from.Insert(rows, false, "", "minimal", "")
	}, nil)
}

func (c *Client) Update(ctx context.Context, table string, filters []gateway.Filter, patch gateway.Row) error {
	if len(filters) == 0 {
		return fmt.Errorf("refusing to update %s without filters", table)
	}
	return c.mutate(ctx, "update", table, func(from *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return from.Update(patch, "minimal", "")
	}, filters)
}

func (c *Client) Delete(ctx context.Context, table string, filters []gateway.Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("refusing to delete from %s without filters", table)
	}
	return c.mutate(ctx, "delete from", table, func(from *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return from.Delete("minimal", "")
	}, filters)
}

func (c *Client) mutate(ctx context.Context, verb, table string, build func(*postgrest.QueryBuilder) *postgrest.FilterBuilder, filters []gateway.Filter) error {
	call, cancel := c.newRESTCall(ctx)
	defer cancel()

	rest, err := c.restClient(call)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", verb, table, err)
	}
	builder := build(rest.From(table))
	applyFilters(builder, filters)
	if rest.ClientError != nil {
		return fmt.Errorf("failed to %s %s: %w", verb, table, rest.ClientError)
	}

	data, _, err := builder.ExecuteWithContext(call.ctx)
	if _, err = call.result(data, err); err != nil {
		return fmt.Errorf("failed to %s %s: %w", verb, table, err)
	}
	return nil
}

// CallProcedure accepts both a bare object and a one-row array as result.
func (c *Client) CallProcedure(ctx context.Context, name string, params interface{}, out interface{}) error {
	call, cancel := c.newRESTCall(ctx)
	defer cancel()

	rest, err := c.restClient(call)
	if err != nil {
		return fmt.Errorf("procedure %s failed: %w", name, err)
	}
	body, err := rest.RpcWithError(name, "", params)
	raw, err := call.result([]byte(body), err)
	if err != nil {
		return fmt.Errorf("procedure %s failed: %w", name, err)
	}
	if out == nil {
		return nil
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("procedure %s: failed to decode result: %w", name, err)
		}
		if len(items) == 0 {
			return fmt.Errorf("procedure %s returned no rows: %w", name, gateway.ErrNotFound)
		}
		raw = items[0]
	}
	if err := decodeBody(raw, out); err != nil {
		return fmt.Errorf("procedure %s: %w", name, err)
	}
	return nil
}

// restClient builds a postgrest client for one call so the session token
// in its headers is the one current at call time.
func (c *Client) restClient(call *restCall) (*postgrest.Client, error) {
	headers := map[string]string{}
	if c.anonKey != "" {
		headers["apikey"] = c.anonKey
	}
	token := c.currentToken()
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	rest, err := postgrest.NewClientWithError(c.baseURL+"/rest/v1", restSchema, headers)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	rest.Transport.Parent = call
	return rest, nil
}

func (c *Client) newRESTCall(ctx context.Context) (*restCall, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &restCall{ctx: ctx, base: base}, cancel
}

// restCall is the round tripper under a single postgrest request. It binds
// the request to ctx and keeps the status and body of error responses,
// which postgrest-go reduces to a message string.
type restCall struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
	body   []byte
}

func (r *restCall) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := r.base.RoundTrip(req.WithContext(r.ctx))
	if err != nil {
		return nil, err
	}
	r.status = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		r.body = body
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp, nil
}

func (r *restCall) result(data []byte, err error) ([]byte, error) {
	switch {
	case r.status >= http.StatusBadRequest:
		return nil, decodeAPIError(r.status, bytes.TrimSpace(r.body))
	case err != nil && r.ctx.Err() != nil:
		return nil, r.ctx.Err()
	case err != nil:
		return nil, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	return data, nil
}

func applyFilters(b *postgrest.FilterBuilder, filters []gateway.Filter) {
	for _, f := range filters {
		switch f.Op {
		case gateway.OpIn:
			b.In(f.Column, listValues(f.Value))
		case gateway.OpIs:
			if f.Value == nil {
				b.Is(f.Column, "null")
			} else {
				b.Is(f.Column, fmt.Sprint(f.Value))
			}
		default:
			b.Filter(f.Column, string(f.Op), fmt.Sprint(f.Value))
		}
	}
}

func listValues(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}
		return items
	default:
		return []string{fmt.Sprint(v)}
	}
}
