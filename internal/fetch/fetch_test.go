// file: internal/fetch/fetch_test.go
// version: 1.0.0
// guid: 7a3e9c5b-1d8f-4b6a-9e2c-4f7d1b8a5c3e

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(opts ...Option) *Client {
	base := []Option{WithRateLimit(1000), WithTimeout(5 * time.Second)}
	return NewClient(append(base, opts...)...)
}

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	data, err := fastClient().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", data)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	data, err := fastClient().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get after retries: %v", err)
	}
	if string(data) != "recovered" {
		t.Fatalf("unexpected body: %s", data)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastClient().Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("404 must not retry, got %d attempts", got)
	}
}

func TestGetRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fastClient(WithMaxRetries(1)).Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestGetUsesDiskCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	client := fastClient(WithCacheDir(t.TempDir()))

	for i := 0; i < 3; i++ {
		data, err := client.Get(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
		if string(data) != "payload" {
			t.Fatalf("unexpected body: %s", data)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 network call with cache, got %d", got)
	}
}

func TestGetHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fastClient().Get(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected context error")
	}
}
