// Package navclient talks to the sidebar API over HTTP. Client implements
// reorder.Persister, so an engine can commit against a remote server.
package navclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agora/api/internal/reorder"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response decoded from the API's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nav api: %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL     string
	communityID string
	http        *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func New(baseURL, communityID string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		communityID: communityID,
		http:        &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Snapshot(ctx context.Context) (reorder.Snapshot, error) {
	var snapshot reorder.Snapshot
	if err := c.do(ctx, http.MethodGet, "", nil, &snapshot); err != nil {
		return reorder.Snapshot{}, err
	}
	return snapshot, nil
}

func (c *Client) ReorderGroups(ctx context.Context, updates []reorder.GroupPosition) error {
	body := struct {
		Updates []reorder.GroupPosition `json:"updates"`
	}{updates}
	return c.do(ctx, http.MethodPost, "/groups/reorder", body, nil)
}

func (c *Client) ReorderItems(ctx context.Context, updates []reorder.ItemPosition) error {
	body := struct {
		Updates []reorder.ItemPosition `json:"updates"`
	}{updates}
	return c.do(ctx, http.MethodPost, "/items/reorder", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	endpoint := c.baseURL + "/api/communities/" + url.PathEscape(c.communityID) + "/nav" + path

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	var envelope struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Code != "" {
			apiErr.Code = envelope.Code
		}
		if envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
	}
	return apiErr
}
