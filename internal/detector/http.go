package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/muzaddid-faruque/ai-traffic-light/pkg/types"
)

// HTTPDetector talks to an out-of-process model daemon. The daemon accepts a
// JPEG body and answers with labeled detections as JSON.
type HTTPDetector struct {
	url    string
	client *http.Client
}

// NewHTTPDetector creates a detector client for the given endpoint.
func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Detect sends one frame to the model daemon. Failures are wrapped in
// DetectionError so the lane pipeline can fall back to an empty snapshot.
func (d *HTTPDetector) Detect(ctx context.Context, frame *types.Frame) ([]Detection, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, &DetectionError{Err: fmt.Errorf("empty frame")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(frame.Data))
	if err != nil {
		return nil, &DetectionError{Err: err}
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &DetectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &DetectionError{Err: fmt.Errorf("model daemon returned %d: %s", resp.StatusCode, body)}
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &DetectionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return parsed.Detections, nil
}
