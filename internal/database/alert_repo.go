package database

import (
	"context"
	"fmt"

	"github.com/wildguard/wildguard/internal/models"
)

type AlertRepo struct {
	db *DB
}

func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

func (r *AlertRepo) Insert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, animal, confidence, image_path, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		alert.ID,
		alert.Animal,
		alert.Confidence,
		alert.ImagePath,
		alert.CreatedAt,
		alert.Read,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepo) List(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := `
		SELECT id, animal, confidence, image_path, created_at, is_read
		FROM alerts
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert := &models.Alert{}
		if err := rows.Scan(
			&alert.ID,
			&alert.Animal,
			&alert.Confidence,
			&alert.ImagePath,
			&alert.CreatedAt,
			&alert.Read,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// MarkAllRead flips every unread alert to read. Re-running it against an
// already-read set changes no rows and returns no error.
func (r *AlertRepo) MarkAllRead(ctx context.Context) error {
	_, err := r.db.conn.ExecContext(ctx, `UPDATE alerts SET is_read = 1 WHERE is_read = 0`)
	if err != nil {
		return fmt.Errorf("failed to mark alerts read: %w", err)
	}
	return nil
}
