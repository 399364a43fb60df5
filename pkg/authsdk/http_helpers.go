package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBody caps how much of a response the client will read.
const maxResponseBody = 1 << 20

// call describes one round trip to the auth service.
type call struct {
	method string
	path   string
	body   any    // JSON-encoded when non-nil
	bearer string // sent as "Authorization: Bearer" when set
	want   int    // expected status; anything else becomes an *APIError
}

// do performs c and decodes a successful body into out (nil discards it).
func (c *SDKClient) do(ctx context.Context, rc call, out any) error {
	var body io.Reader
	if rc.body != nil {
		raw, err := json.Marshal(rc.body)
		if err != nil {
			return fmt.Errorf("authsdk: encode %s %s: %w", rc.method, rc.path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, c.BaseURL+rc.path, body)
	if err != nil {
		return fmt.Errorf("authsdk: build %s %s: %w", rc.method, rc.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+rc.bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authsdk: %s %s: %w", rc.method, rc.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("authsdk: read %s response: %w", rc.path, err)
	}

	if resp.StatusCode != rc.want {
		if err := parseErrorResponse(resp, raw); err != nil {
			return err
		}
		return NewAPIError(resp.StatusCode, ErrorCodeInternal,
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, rc.path))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("authsdk: decode %s response: %w", rc.path, err)
	}
	return nil
}

// get is do for a GET that expects 200 with a JSON body of type T.
func get[T any](ctx context.Context, c *SDKClient, path, bearer string) (*T, error) {
	var v T
	if err := c.do(ctx, call{method: http.MethodGet, path: path, bearer: bearer, want: http.StatusOK}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
