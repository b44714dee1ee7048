package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newClipStub(t *testing.T, embedding []float32) (*httptest.Server, *atomic.Int32, *string) {
	t.Helper()

	var healthCalls atomic.Int32
	var lastInput string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		healthCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req embedImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lastInput = req.Input
		json.NewEncoder(w).Encode(embedImageResponse{Embedding: embedding})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &healthCalls, &lastInput
}

func TestClipImageEmbedder_EmbedImage(t *testing.T) {
	srv, healthCalls, lastInput := newClipStub(t, []float32{0.1, 0.2, 0.3})
	e := NewClipImageEmbedder(ImageConfig{BaseURL: srv.URL})

	vec, err := e.EmbedImage(context.Background(), "https://img.example/card.jpg")
	if err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("EmbedImage() len = %d, want 3", len(vec))
	}
	if *lastInput != "https://img.example/card.jpg" {
		t.Errorf("URL should pass through unchanged, got %q", *lastInput)
	}

	// Second call must not re-probe the sidecar.
	if _, err := e.EmbedImage(context.Background(), "https://img.example/other.jpg"); err != nil {
		t.Fatalf("second EmbedImage() error = %v", err)
	}
	if got := healthCalls.Load(); got != 1 {
		t.Errorf("health probed %d times, want 1", got)
	}
}

func TestClipImageEmbedder_RawBase64Normalized(t *testing.T) {
	srv, _, lastInput := newClipStub(t, []float32{1})
	e := NewClipImageEmbedder(ImageConfig{BaseURL: srv.URL})

	if _, err := e.EmbedImage(context.Background(), "AAAABBBB"); err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if *lastInput != "data:image/jpeg;base64,AAAABBBB" {
		t.Errorf("raw base64 should be wrapped into a data URI, got %q", *lastInput)
	}

	srv2, _, lastInput2 := newClipStub(t, []float32{1})
	e2 := NewClipImageEmbedder(ImageConfig{BaseURL: srv2.URL})
	if _, err := e2.EmbedImage(context.Background(), "data:image/png;base64,XYZ"); err != nil {
		t.Fatalf("EmbedImage() error = %v", err)
	}
	if *lastInput2 != "data:image/png;base64,XYZ" {
		t.Errorf("data URI should pass through unchanged, got %q", *lastInput2)
	}
}

func TestClipImageEmbedder_RecoversAfterSidecarOutage(t *testing.T) {
	var healthCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		// First health check fails, the sidecar is healthy afterwards.
		if healthCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedImageResponse{Embedding: []float32{1}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	e := NewClipImageEmbedder(ImageConfig{BaseURL: srv.URL})

	if _, err := e.EmbedImage(context.Background(), "https://img.example/card.jpg"); err == nil {
		t.Fatal("expected error while the sidecar is unhealthy")
	}

	vec, err := e.EmbedImage(context.Background(), "https://img.example/card.jpg")
	if err != nil {
		t.Fatalf("EmbedImage() after sidecar recovery error = %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("EmbedImage() len = %d, want 1", len(vec))
	}
	if got := healthCalls.Load(); got != 2 {
		t.Errorf("health checked %d times, want 2", got)
	}
}

func TestClipImageEmbedder_CancelledFirstCallDoesNotStick(t *testing.T) {
	srv, _, _ := newClipStub(t, []float32{1})
	e := NewClipImageEmbedder(ImageConfig{BaseURL: srv.URL})

	// The health check runs on its own bounded context, so a dead request
	// context on the first call must not poison later calls.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	e.EmbedImage(cancelled, "https://img.example/card.jpg")

	if _, err := e.EmbedImage(context.Background(), "https://img.example/card.jpg"); err != nil {
		t.Fatalf("EmbedImage() after cancelled first call error = %v", err)
	}
}

func TestClipImageEmbedder_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model failed to load", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	e := NewClipImageEmbedder(ImageConfig{BaseURL: srv.URL})
	if _, err := e.EmbedImage(context.Background(), "https://img.example/card.jpg"); err == nil {
		t.Fatal("expected error when the sidecar is unhealthy")
	}
}

func TestClipImageEmbedder_EmptyRef(t *testing.T) {
	e := NewClipImageEmbedder(ImageConfig{})
	if _, err := e.EmbedImage(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty image reference")
	}
}
