package sofascore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTransport_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer, gotAcceptEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotAcceptEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"events":[{"id":1}]}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(HTTPTransportConfig{UserAgent: "test-agent/1.0"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := transport.Get(ctx, server.URL+"/api/v1/sport/football/scheduled-events/2026-10-17")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != `{"events":[{"id":1}]}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if gotUA != "test-agent/1.0" {
		t.Fatalf("unexpected user agent: %q", gotUA)
	}
	if gotReferer != "https://www.sofascore.com/" {
		t.Fatalf("unexpected referer: %q", gotReferer)
	}
	if gotAcceptEncoding != "" {
		t.Fatalf("expected no accept-encoding, got %q", gotAcceptEncoding)
	}
}

func TestHTTPTransport_NonSuccessStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"reason":"challenge"}}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(HTTPTransportConfig{})
	_, err := transport.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatalf("expected error for 403")
	}
	if !strings.Contains(err.Error(), "status=403") || !strings.Contains(err.Error(), "challenge") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPTransport_CancelledContext(t *testing.T) {
	transport := NewHTTPTransport(HTTPTransportConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := transport.Get(ctx, "http://127.0.0.1:1/"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
