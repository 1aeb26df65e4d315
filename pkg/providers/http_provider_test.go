package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoRequest_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{Name: "test", Type: "generic"})
	defer p.Close()

	_, err := p.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (no retries by default)", got)
	}

	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if perr.StatusCode != http.StatusServiceUnavailable || !perr.Retryable() {
		t.Errorf("error = %+v", perr)
	}
}

func TestDoRequest_RetriesTransientWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{Name: "test", MaxRetries: 2})
	defer p.Close()

	resp, err := p.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("DoRequest() = %v", err)
	}
	resp.Body.Close()
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestDoRequest_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request body", http.StatusBadRequest)
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{Name: "test", MaxRetries: 3})
	defer p.Close()

	_, err := p.DoRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (4xx is not transient)", got)
	}
}

func TestHealthTracking(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{Name: "test", Timeout: time.Second})
	defer p.Close()
	ctx := context.Background()

	if !p.IsHealthy() {
		t.Fatal("provider should start healthy")
	}

	for i := 0; i < unhealthyAfter; i++ {
		p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	}
	if p.IsHealthy() {
		t.Errorf("provider still healthy after %d consecutive failures", unhealthyAfter)
	}

	status.Store(http.StatusOK)
	resp, err := p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("DoRequest() = %v", err)
	}
	resp.Body.Close()

	if !p.IsHealthy() {
		t.Error("one success should restore health")
	}
	health := p.GetHealth()
	if health.ConsecutiveFailures != 0 || health.LastError != nil {
		t.Errorf("health after recovery = %+v", health)
	}
	if health.TotalRequests != int64(unhealthyAfter)+1 || health.FailedRequests != int64(unhealthyAfter) {
		t.Errorf("request counters = %d total / %d failed", health.TotalRequests, health.FailedRequests)
	}
}

func TestDoRequest_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	p := NewHTTPProvider(Config{Name: "test"})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.DoRequest(ctx, http.MethodGet, server.URL, nil, nil)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Error("DoRequest did not return after context cancellation")
	}
}
