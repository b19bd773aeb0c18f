package models

import (
	"time"

	"github.com/google/uuid"
)

// BBox is a bounding box in source-image pixel coordinates.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns X2-X1.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2-Y1.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Detection is one labeled, confidence-scored bounding box produced by a
// single inference call. It lives only for the duration of one request.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        BBox    `json:"-"`
}

// DetectionRecord is a persisted detection row. The box is stored as
// origin plus size rather than two corners.
type DetectionRecord struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	W          float64   `json:"w"`
	H          float64   `json:"h"`
	UserID     *string   `json:"user_id,omitempty"`
}

// NewDetectionRecord derives a row from a transient detection.
func NewDetectionRecord(d Detection, userID *string, at time.Time) *DetectionRecord {
	return &DetectionRecord{
		ID:         uuid.New().String(),
		CreatedAt:  at,
		Label:      d.Label,
		Confidence: d.Confidence,
		X:          d.Box.X1,
		Y:          d.Box.Y1,
		W:          d.Box.Width(),
		H:          d.Box.Height(),
		UserID:     userID,
	}
}
