package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wildguard/wildguard/internal/models"
)

type LogRepo struct {
	db *DB
}

func NewLogRepo(db *DB) *LogRepo {
	return &LogRepo{db: db}
}

func (r *LogRepo) Insert(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO logs (id, user_id, animal, confidence, image_path, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Animal,
		entry.Confidence,
		entry.ImagePath,
		entry.Message,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}
	return nil
}

func (r *LogRepo) List(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	query := `
		SELECT id, user_id, animal, confidence, image_path, message, created_at
		FROM logs
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		entry := &models.LogEntry{}
		var userID sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&userID,
			&entry.Animal,
			&entry.Confidence,
			&entry.ImagePath,
			&entry.Message,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		if userID.Valid {
			entry.UserID = &userID.String
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
