package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Doer executes HTTP requests. *infrastructure/http.TracedClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("postgrest: status %d: %s", e.Status, e.Body)
}

// Client talks to a PostgREST (or Supabase REST) endpoint. Requests carry
// the API key both as apikey and as bearer token.
type Client struct {
	baseURL string
	apiKey  string
	http    Doer
}

// NewClient builds a client for baseURL, e.g. https://x.supabase.co/rest/v1.
func NewClient(baseURL, apiKey string, doer Doer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    doer,
	}
}

// Ping issues a minimal read against table.
func (c *Client) Ping(ctx context.Context, table string) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	return c.do(ctx, http.MethodGet, table, q, nil, "", nil)
}

func (c *Client) selectAll(ctx context.Context, table, field string, desc bool, out any) error {
	q := url.Values{}
	q.Set("select", "*")
	if field != "" {
		dir := "asc"
		if desc {
			dir = "desc"
		}
		q.Set("order", field+"."+dir)
	}
	return c.do(ctx, http.MethodGet, table, q, nil, "", out)
}

func (c *Client) insert(ctx context.Context, table string, rows any) error {
	return c.do(ctx, http.MethodPost, table, nil, rows, "return=minimal", nil)
}

func (c *Client) upsert(ctx context.Context, table string, rows any) error {
	q := url.Values{}
	q.Set("on_conflict", "id")
	return c.do(ctx, http.MethodPost, table, q, rows, "resolution=merge-duplicates,return=minimal", nil)
}

func (c *Client) update(ctx context.Context, table, id string, cols map[string]any) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.do(ctx, http.MethodPatch, table, q, cols, "return=minimal", nil)
}

func (c *Client) delete(ctx context.Context, table, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.do(ctx, http.MethodDelete, table, q, nil, "", nil)
}

func (c *Client) deleteMany(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := url.Values{}
	q.Set("id", inFilter(ids))
	return c.do(ctx, http.MethodDelete, table, q, nil, "", nil)
}

// inFilter renders ids as a PostgREST in.(...) filter with quoted values.
func inFilter(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, prefer string, out any) error {
	endpoint := c.baseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}
