package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcherCachesPayload(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("hello\nworld\n"))
	}))
	defer srv.Close()

	cfg := Options{}.withDefaults()
	f := newFetcher(cfg)
	limiter := newHostLimiter(1000) // fast for the test

	ctx := context.Background()
	if _, err := f.fetch(ctx, limiter, cfg, srv.URL); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := f.fetch(ctx, limiter, cfg, srv.URL); err != nil {
		t.Fatalf("fetch (cached): %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 upstream hit due to caching, got %d", hits)
	}
}

func TestFetcherRetriesOnFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := Options{BackoffBase: time.Millisecond, BackoffMax: 10 * time.Millisecond}.withDefaults()
	f := newFetcher(cfg)
	limiter := newHostLimiter(1000)

	data, err := f.fetch(context.Background(), limiter, cfg, srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "ok" {
		t.Fatalf("unexpected payload: %q", data)
	}
	if attempts < 2 {
		t.Errorf("expected at least 2 attempts, got %d", attempts)
	}
}
