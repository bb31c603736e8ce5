package aegis

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestWebhookListenerSignsAndDelivers(t *testing.T) {
	const secret = "s3cr3t"

	var mu sync.Mutex
	var gotBody []byte
	var gotSig string
	received := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotBody = body
		gotSig = r.Header.Get("X-Aegis-Signature")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		close(received)
	}))
	defer srv.Close()

	listener := NewWebhookListener([]WebhookConfig{
		{URL: srv.URL, Events: []string{"*"}, Secret: secret},
	}, nil)

	listener.OnEvent(context.Background(), WorkflowEvent{
		EventType:    EventWorkflowStarted,
		Timestamp:    NowUTC(),
		WorkflowName: "nightly",
		Data:         map[string]any{"step_count": 3},
	})

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered in time")
	}

	mu.Lock()
	defer mu.Unlock()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %s, want %s", gotSig, want)
	}
}

func TestWebhookListenerSkipsNonSubscribedEvents(t *testing.T) {
	called := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	listener := NewWebhookListener([]WebhookConfig{
		{URL: srv.URL, Events: []string{EventFailureDetected}},
	}, nil)

	listener.OnEvent(context.Background(), WorkflowEvent{EventType: EventWorkflowStarted})

	select {
	case <-called:
		t.Fatal("webhook fired for an event it did not subscribe to")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebhookListenerPendingCountDrainsToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	listener := NewWebhookListener([]WebhookConfig{
		{URL: srv.URL, Events: []string{"*"}},
	}, nil)

	listener.OnEvent(context.Background(), WorkflowEvent{EventType: EventWorkflowStarted})

	deadline := time.Now().Add(2 * time.Second)
	for listener.PendingCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("pending delivery never cleared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
