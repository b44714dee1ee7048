package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ImageConfig configures the CLIP image embedder. BaseURL points at a CLIP
// inference sidecar exposing POST /embeddings and GET /health.
type ImageConfig struct {
	BaseURL string // default: "http://localhost:8179"
	Timeout time.Duration
}

// ClipImageEmbedder produces 512-dim image embeddings from a CLIP inference
// HTTP service. The sidecar loads the model lazily; the embedder probes it
// on first use so a cold model does not look like a per-request failure.
// Only a successful probe is remembered: a failed one is retried on the
// next call, so a transient sidecar outage never sticks. The handle is
// plain injected state, constructed in the composition root and passed
// down. No package-level singleton.
type ClipImageEmbedder struct {
	baseURL    string
	httpClient *http.Client

	warmMu sync.Mutex
	warmed bool
}

// probeTimeout bounds the readiness probe independently of the request
// context, so a caller-cancelled first request cannot taint the probe.
const probeTimeout = 30 * time.Second

func NewClipImageEmbedder(cfg ImageConfig) *ClipImageEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8179"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &ClipImageEmbedder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type embedImageRequest struct {
	Input string `json:"input"`
}

type embedImageResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EmbedImage accepts an HTTP(S) URL, a data URI, or raw base64 content and
// returns the CLIP embedding of the image.
func (e *ClipImageEmbedder) EmbedImage(ctx context.Context, imageRef string) ([]float32, error) {
	if imageRef == "" {
		return nil, fmt.Errorf("empty image reference")
	}

	if err := e.ensureReady(); err != nil {
		return nil, fmt.Errorf("clip service not ready: %w", err)
	}

	body, err := json.Marshal(embedImageRequest{Input: normalizeImageRef(imageRef)})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call clip service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("clip service returned %d: %s", resp.StatusCode, string(b))
	}

	var out embedImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("clip service error: %s", out.Error)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("clip service returned empty embedding")
	}

	return out.Embedding, nil
}

func (e *ClipImageEmbedder) ensureReady() error {
	e.warmMu.Lock()
	defer e.warmMu.Unlock()
	if e.warmed {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := e.probe(ctx); err != nil {
		return err
	}
	e.warmed = true
	return nil
}

func (e *ClipImageEmbedder) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// normalizeImageRef passes URLs and data URIs through unchanged and wraps
// raw base64 content into a data URI so the sidecar sees one of two shapes.
func normalizeImageRef(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	return "data:image/jpeg;base64," + ref
}
