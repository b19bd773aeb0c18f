package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wildguard/wildguard/internal/auth"
	"github.com/wildguard/wildguard/internal/database"
	"github.com/wildguard/wildguard/internal/models"
	"github.com/wildguard/wildguard/internal/pipeline"
	"github.com/wildguard/wildguard/internal/storage"
)

const (
	defaultAlertsLimit     = 50
	defaultLogsLimit       = 200
	defaultDetectionsLimit = 500
)

type App struct {
	Pipeline      *pipeline.Pipeline
	Auth          *auth.Service
	Storage       storage.Storage
	DetectionRepo *database.DetectionRepo
	AlertRepo     *database.AlertRepo
	LogRepo       *database.LogRepo
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type detectionJSON struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

func toDetectionJSON(batch []models.Detection) []detectionJSON {
	out := make([]detectionJSON, 0, len(batch))
	for _, d := range batch {
		out = append(out, detectionJSON{
			Label:      d.Label,
			Confidence: d.Confidence,
			BBox:       [4]float64{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2},
		})
	}
	return out
}

// DetectHandler ingests one camera frame and runs it through the pipeline.
func (app *App) DetectHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "File too large or malformed form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read image")
		return
	}

	token := bearerToken(r)
	if token == "" {
		token = r.FormValue("token")
	}

	batch, err := app.Pipeline.Process(r.Context(), token, imageData)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnauthorized):
			respondError(w, http.StatusUnauthorized, "Invalid or missing token")
		case errors.Is(err, pipeline.ErrInvalidImage):
			respondError(w, http.StatusBadRequest, "Invalid image")
		case errors.Is(err, pipeline.ErrDetectorUnavailable):
			log.Error().Err(err).Msg("Detection collaborator unavailable")
			respondError(w, http.StatusServiceUnavailable, "Detection service unavailable")
		default:
			log.Error().Err(err).Msg("Detection pipeline failed")
			respondError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"detections": toDetectionJSON(batch),
	})
}

func (app *App) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	alerts, err := app.AlertRepo.List(r.Context(), queryLimit(r, defaultAlertsLimit))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts")
		respondError(w, http.StatusInternalServerError, "Failed to load alerts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": emptyIfNil(alerts)})
}

func (app *App) MarkAlertsReadHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.AlertRepo.MarkAllRead(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to mark alerts read")
		respondError(w, http.StatusInternalServerError, "Failed to mark alerts read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *App) LogsHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := app.LogRepo.List(r.Context(), queryLimit(r, defaultLogsLimit))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list logs")
		respondError(w, http.StatusInternalServerError, "Failed to load logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": emptyIfNil(entries)})
}

func (app *App) DetectionsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := app.DetectionRepo.List(r.Context(), queryLimit(r, defaultDetectionsLimit))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list detections")
		respondError(w, http.StatusInternalServerError, "Failed to load detections")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"detections": emptyIfNil(records)})
}

// EvidenceHandler serves a stored evidence image.
func (app *App) EvidenceHandler(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		http.NotFound(w, r)
		return
	}

	file, err := app.Storage.OpenFile(filename)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	modTime := time.Time{}
	if statter, ok := file.(interface{ Stat() (os.FileInfo, error) }); ok {
		if stat, err := statter.Stat(); err == nil {
			modTime = stat.ModTime()
		}
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, filename, modTime, file)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func queryLimit(r *http.Request, defaultLimit int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
