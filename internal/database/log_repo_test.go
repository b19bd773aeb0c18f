package database

import (
	"context"
	"testing"
	"time"

	"github.com/wildguard/wildguard/internal/models"
)

func TestLogRepo_InsertAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLogRepo(db)
	ctx := context.Background()

	userID := "user-1"
	entry := models.NewLogEntry(&userID, "lion", 0.91, "alert_1.jpg", "DANGER ALERT", time.Now().UTC())
	if err := repo.Insert(ctx, entry); err != nil {
		t.Fatalf("Failed to insert log: %v", err)
	}

	entries, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list logs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	got := entries[0]
	if got.Message != "DANGER ALERT" {
		t.Errorf("Expected message DANGER ALERT, got %s", got.Message)
	}
	if got.UserID == nil || *got.UserID != userID {
		t.Errorf("Expected user id %s, got %v", userID, got.UserID)
	}
}

func TestLogRepo_NilUserAndLimit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLogRepo(db)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		entry := models.NewLogEntry(nil, "deer", 0.6, "", "frame detection", base.Add(time.Duration(i)*time.Second))
		if err := repo.Insert(ctx, entry); err != nil {
			t.Fatalf("Failed to insert log: %v", err)
		}
	}

	entries, err := repo.List(ctx, 3)
	if err != nil {
		t.Fatalf("Failed to list logs: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 log entries, got %d", len(entries))
	}
	if entries[0].UserID != nil {
		t.Errorf("Expected nil user id, got %v", *entries[0].UserID)
	}
	if !entries[0].CreatedAt.After(entries[2].CreatedAt) {
		t.Error("Expected newest-first ordering")
	}
}
