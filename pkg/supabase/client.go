package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every request made by a client created with NewClient.
const DefaultTimeout = 15 * time.Second

// Client represents a Supabase client
type Client struct {
	URL        string
	ServiceKey string
	HTTPClient *http.Client
}

// NewClient creates a new Supabase client
func NewClient(url, serviceKey string) *Client {
	return &Client{
		URL:        url,
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Error is a non-2xx response from Supabase
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase error (status %d): %s", e.StatusCode, e.Body)
}

// IsConflict reports whether err is a unique-constraint violation
func IsConflict(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsClientError reports whether Supabase rejected the request itself (4xx),
// e.g. wrong credentials or an expired token
func IsClientError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

// Filter holds PostgREST query parameters, e.g. {"id": "eq.123", "order": "name.asc"}
type Filter map[string]string

// Eq builds an equality filter value
func Eq(value string) string {
	return "eq." + value
}

// In builds a membership filter value
func In(values []string) string {
	quoted := make([]byte, 0, len(values)*8)
	quoted = append(quoted, "in.("...)
	for i, v := range values {
		if i > 0 {
			quoted = append(quoted, ',')
		}
		quoted = append(quoted, '"')
		quoted = append(quoted, v...)
		quoted = append(quoted, '"')
	}
	quoted = append(quoted, ')')
	return string(quoted)
}

type requestOptions struct {
	method string
	path   string
	query  Filter
	body   any
	prefer string
}

// do sends a request authorized with the user token carried by ctx, or the
// service key when there is none.
func (c *Client) do(ctx context.Context, opts requestOptions) ([]byte, error) {
	endpoint := c.URL + opts.path

	var reader io.Reader
	if opts.body != nil {
		jsonData, err := json.Marshal(opts.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, opts.method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	if len(opts.query) > 0 {
		q := url.Values{}
		for key, value := range opts.query {
			q.Set(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("apikey", c.ServiceKey)
	if token := UserTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	}
	if opts.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.prefer != "" {
		req.Header.Set("Prefer", opts.prefer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func tablePath(table string) string {
	return "/rest/v1/" + table
}

// Query executes a query on a Supabase table
func (c *Client) Query(ctx context.Context, table string, query Filter) ([]byte, error) {
	return c.do(ctx, requestOptions{method: http.MethodGet, path: tablePath(table), query: query})
}

// Insert inserts a record into a Supabase table
func (c *Client) Insert(ctx context.Context, table string, data any) ([]byte, error) {
	return c.do(ctx, requestOptions{
		method: http.MethodPost,
		path:   tablePath(table),
		body:   data,
		prefer: "return=representation",
	})
}

// Update updates the record with the given id
func (c *Client) Update(ctx context.Context, table, id string, data any) ([]byte, error) {
	return c.UpdateWhere(ctx, table, Filter{"id": Eq(id)}, data)
}

// UpdateWhere updates records matching a query
func (c *Client) UpdateWhere(ctx context.Context, table string, query Filter, data any) ([]byte, error) {
	return c.do(ctx, requestOptions{
		method: http.MethodPatch,
		path:   tablePath(table),
		query:  query,
		body:   data,
		prefer: "return=representation",
	})
}

// Upsert inserts or updates a record in a Supabase table.
// onConflict specifies the columns to detect conflicts (e.g., "stageId")
func (c *Client) Upsert(ctx context.Context, table string, data any, onConflict string) ([]byte, error) {
	return c.do(ctx, requestOptions{
		method: http.MethodPost,
		path:   tablePath(table),
		query:  Filter{"on_conflict": onConflict},
		body:   data,
		// resolution=merge-duplicates updates existing rows
		prefer: "return=representation,resolution=merge-duplicates",
	})
}

// Delete deletes the record with the given id
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.DeleteWhere(ctx, table, Filter{"id": Eq(id)})
}

// DeleteWhere deletes records matching a query
func (c *Client) DeleteWhere(ctx context.Context, table string, query Filter) error {
	_, err := c.do(ctx, requestOptions{method: http.MethodDelete, path: tablePath(table), query: query})
	return err
}
