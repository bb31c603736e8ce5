// Package steps implements the built-in StepHandler kinds: discover,
// test, verify, submit_bugs, and report.
package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jblacketter/aegis"
)

// baseStep carries the HTTP plumbing shared by every concrete handler:
// a client, the service's base URL, and its resolved API key header.
type baseStep struct {
	entry   aegis.ServiceEntry
	baseURL string
	apiKey  string
	client  *http.Client
}

func newBaseStep(entry aegis.ServiceEntry) baseStep {
	return baseStep{
		entry:   entry,
		baseURL: strings.TrimRight(entry.URL, "/"),
		apiKey:  entry.APIKey(),
		client:  timeoutClient(),
	}
}

func (b baseStep) headers() http.Header {
	h := http.Header{"Content-Type": []string{"application/json"}}
	if key := b.apiKey; key != "" {
		h.Set("X-API-Key", key)
	}
	return h
}

func (b baseStep) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header = b.headers()
	return b.do(req)
}

func (b baseStep) post(ctx context.Context, path string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = b.headers()
	return b.do(req)
}

func (b baseStep) do(req *http.Request) (map[string]any, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &aegis.ErrHTTP{Status: resp.StatusCode, Body: string(raw)}
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// timeoutClient returns an http.Client with a generous default timeout;
// the runner's own per-step hard timeout (§4.5) is authoritative and this
// is only a courtesy cap on a runaway connection.
func timeoutClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}
