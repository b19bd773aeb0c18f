package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wildguard/wildguard/internal/models"
)

// HTTPDetector talks to the inference sidecar that serves the detection
// model.
type HTTPDetector struct {
	baseURL             string
	confidenceThreshold float64
	httpClient          *http.Client
}

func NewHTTPDetector(cfg Config, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		baseURL:             cfg.URL,
		confidenceThreshold: cfg.ConfidenceThreshold,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type inferResponse struct {
	Detections []struct {
		Label      string    `json:"label"`
		Confidence float64   `json:"confidence"`
		BBox       []float64 `json:"bbox"`
	} `json:"detections"`
	Error string `json:"error,omitempty"`
}

// Infer posts the frame to the model server and decodes the detection
// batch. Zero detections is a success with an empty slice.
func (d *HTTPDetector) Infer(ctx context.Context, imageData []byte) ([]models.Detection, error) {
	endpoint := d.baseURL + "/infer?conf=" + strconv.FormatFloat(d.confidenceThreshold, 'f', -1, 64)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach detector: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp inferResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("detector error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var inferResp inferResponse
	if err := json.Unmarshal(body, &inferResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detector response: %w", err)
	}

	detections := make([]models.Detection, 0, len(inferResp.Detections))
	for _, raw := range inferResp.Detections {
		if len(raw.BBox) != 4 {
			return nil, fmt.Errorf("detector returned malformed bbox for label %q", raw.Label)
		}
		detections = append(detections, models.Detection{
			Label:      raw.Label,
			Confidence: raw.Confidence,
			Box: models.BBox{
				X1: raw.BBox[0],
				Y1: raw.BBox[1],
				X2: raw.BBox[2],
				Y2: raw.BBox[3],
			},
		})
	}

	return detections, nil
}
