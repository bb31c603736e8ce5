package aegis

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// WebhookConfig names a delivery target: which event types it subscribes
// to ("*" matches all), and an optional HMAC signing secret.
type WebhookConfig struct {
	URL    string
	Events []string
	Secret string
}

func (w WebhookConfig) subscribes(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// WebhookListener delivers events to configured webhook URLs. Delivery is
// fire-and-forget: OnEvent spawns a background goroutine per matching
// webhook and returns immediately without waiting for the HTTP round trip.
type WebhookListener struct {
	webhooks []WebhookConfig
	client   *http.Client
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[int]struct{}
	nextID  int
}

// NewWebhookListener returns a WebhookListener for the given targets. A
// nil logger falls back to a discard logger.
func NewWebhookListener(webhooks []WebhookConfig, logger *slog.Logger) *WebhookListener {
	if logger == nil {
		logger = discardLogger()
	}
	return &WebhookListener{
		webhooks: webhooks,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		pending:  make(map[int]struct{}),
	}
}

type webhookPayload struct {
	EventType    string         `json:"event_type"`
	Timestamp    string         `json:"timestamp"`
	WorkflowName string         `json:"workflow_name"`
	Data         map[string]any `json:"data"`
}

// OnEvent implements EventListener. It never blocks on delivery.
func (w *WebhookListener) OnEvent(ctx context.Context, event WorkflowEvent) {
	for _, wh := range w.webhooks {
		if !wh.subscribes(event.EventType) {
			continue
		}
		w.mu.Lock()
		id := w.nextID
		w.nextID++
		w.pending[id] = struct{}{}
		w.mu.Unlock()

		go func(wh WebhookConfig) {
			defer func() {
				w.mu.Lock()
				delete(w.pending, id)
				w.mu.Unlock()
			}()
			w.deliver(wh, event)
		}(wh)
	}
}

// deliver signs and POSTs event to wh.URL. All errors are caught and
// logged; delivery is never retried at this layer.
func (w *WebhookListener) deliver(wh WebhookConfig, event WorkflowEvent) {
	body, err := json.Marshal(webhookPayload{
		EventType:    event.EventType,
		Timestamp:    event.Timestamp.Format(time.RFC3339),
		WorkflowName: event.WorkflowName,
		Data:         event.Data,
	})
	if err != nil {
		w.logger.Error("webhook payload marshal failed", "url", wh.URL, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("webhook request build failed", "url", wh.URL, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if wh.Secret != "" {
		mac := hmac.New(sha256.New, []byte(wh.Secret))
		mac.Write(body)
		req.Header.Set("X-Aegis-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Error("webhook delivery failed", "url", wh.URL, "event_type", event.EventType, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.logger.Error("webhook delivery non-2xx", "url", wh.URL, "status", resp.StatusCode)
	}
}

// PendingCount returns the number of in-flight deliveries, for tests.
func (w *WebhookListener) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
