// Package detect wraps the object-detection collaborator.
package detect

import (
	"context"

	"github.com/wildguard/wildguard/internal/models"
)

// Detector converts raw frame bytes into normalized detections. A
// well-formed frame with nothing in it yields an empty batch, not an
// error; errors mean malformed input or an unavailable model.
type Detector interface {
	Infer(ctx context.Context, imageData []byte) ([]models.Detection, error)
}

// Config holds the detection collaborator settings.
type Config struct {
	URL                 string
	ConfidenceThreshold float64
}
