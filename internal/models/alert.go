package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a persisted danger alert. Read starts false and is only ever
// flipped by the mark-all-read operation.
type Alert struct {
	ID         string    `json:"id"`
	Animal     string    `json:"animal"`
	Confidence float64   `json:"confidence"`
	ImagePath  string    `json:"image_path"`
	CreatedAt  time.Time `json:"created_at"`
	Read       bool      `json:"read"`
}

// NewAlert creates an unread alert for the selected detection.
func NewAlert(animal string, confidence float64, imagePath string, at time.Time) *Alert {
	return &Alert{
		ID:         uuid.New().String(),
		Animal:     animal,
		Confidence: confidence,
		ImagePath:  imagePath,
		CreatedAt:  at,
		Read:       false,
	}
}

// LogEntry is one persisted pipeline event, either a per-detection
// "frame detection" row or a "DANGER ALERT" row.
type LogEntry struct {
	ID         string    `json:"id"`
	UserID     *string   `json:"user_id,omitempty"`
	Animal     string    `json:"animal"`
	Confidence float64   `json:"confidence"`
	ImagePath  string    `json:"image_path"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewLogEntry creates a log row.
func NewLogEntry(userID *string, animal string, confidence float64, imagePath, message string, at time.Time) *LogEntry {
	return &LogEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		Animal:     animal,
		Confidence: confidence,
		ImagePath:  imagePath,
		Message:    message,
		CreatedAt:  at,
	}
}
