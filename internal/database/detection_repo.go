package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wildguard/wildguard/internal/models"
)

type DetectionRepo struct {
	db *DB
}

func NewDetectionRepo(db *DB) *DetectionRepo {
	return &DetectionRepo{db: db}
}

func (r *DetectionRepo) Insert(ctx context.Context, rec *models.DetectionRecord) error {
	query := `
		INSERT INTO detections (id, created_at, label, confidence, x, y, w, h, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		rec.ID,
		rec.CreatedAt,
		rec.Label,
		rec.Confidence,
		rec.X,
		rec.Y,
		rec.W,
		rec.H,
		rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}
	return nil
}

func (r *DetectionRepo) List(ctx context.Context, limit int) ([]*models.DetectionRecord, error) {
	query := `
		SELECT id, created_at, label, confidence, x, y, w, h, user_id
		FROM detections
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var records []*models.DetectionRecord
	for rows.Next() {
		rec := &models.DetectionRecord{}
		var userID sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.CreatedAt,
			&rec.Label,
			&rec.Confidence,
			&rec.X,
			&rec.Y,
			&rec.W,
			&rec.H,
			&userID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		if userID.Valid {
			rec.UserID = &userID.String
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
