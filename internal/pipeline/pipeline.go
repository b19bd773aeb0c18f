// Package pipeline sequences the per-frame control flow: authenticate,
// infer, persist, gate, alert, respond.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildguard/wildguard/internal/alerting"
	"github.com/wildguard/wildguard/internal/auth"
	"github.com/wildguard/wildguard/internal/classify"
	"github.com/wildguard/wildguard/internal/detect"
	"github.com/wildguard/wildguard/internal/models"
	"github.com/wildguard/wildguard/internal/notify"
)

var (
	// ErrUnauthorized aborts the request before any work is performed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidImage aborts the request before inference; nothing is
	// persisted.
	ErrInvalidImage = errors.New("invalid image")
	// ErrDetectorUnavailable surfaces an inference collaborator failure.
	ErrDetectorUnavailable = errors.New("detector unavailable")
)

const (
	logFrameDetection = "frame detection"
	logDangerAlert    = "DANGER ALERT"
)

// TokenResolver resolves a caller-supplied token to a principal.
type TokenResolver interface {
	Resolve(token string) (*auth.Principal, bool)
}

// DetectionStore persists detection rows.
type DetectionStore interface {
	Insert(ctx context.Context, rec *models.DetectionRecord) error
}

// AlertStore persists alert rows.
type AlertStore interface {
	Insert(ctx context.Context, alert *models.Alert) error
}

// LogStore persists log rows.
type LogStore interface {
	Insert(ctx context.Context, entry *models.LogEntry) error
}

// EvidenceStore persists rendered evidence images.
type EvidenceStore interface {
	SaveEvidence(data []byte) (string, error)
}

// Renderer draws the annotated evidence frame.
type Renderer interface {
	Render(src image.Image, batch []models.Detection) ([]byte, error)
}

// Notifier fans a fired alert out to the side channels.
type Notifier interface {
	Dispatch(ctx context.Context, det models.Detection, at time.Time, recipientEmail string) notify.Outcome
}

// Deps wires the pipeline's collaborators.
type Deps struct {
	Detector     detect.Detector
	Classifier   *classify.Classifier
	Gate         *alerting.Gate
	Renderer     Renderer
	Evidence     EvidenceStore
	Detections   DetectionStore
	Alerts       AlertStore
	Logs         LogStore
	Auth         TokenResolver
	Notifier     Notifier
	AuthRequired bool

	// Clock defaults to time.Now; injected for deterministic tests.
	Clock func() time.Time
}

// Pipeline is the per-request orchestrator. It holds no per-request state;
// the only shared mutable state is the gate, which guards its own critical
// section.
type Pipeline struct {
	deps  Deps
	clock func() time.Time
}

func New(deps Deps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{deps: deps, clock: clock}
}

// Process runs one frame through the pipeline and returns the full
// detection batch regardless of whether an alert fired. No lock is held
// across the decode, inference, persistence, render or notify calls.
func (p *Pipeline) Process(ctx context.Context, token string, imageData []byte) ([]models.Detection, error) {
	var principal *auth.Principal
	if p.deps.AuthRequired {
		pr, ok := p.deps.Auth.Resolve(token)
		if !ok {
			return nil, ErrUnauthorized
		}
		principal = pr
	}

	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	batch, err := p.deps.Detector.Infer(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	now := p.clock()
	p.persistBatch(ctx, batch, principal, now)

	if !p.batchHasDanger(batch) {
		return batch, nil
	}

	if !p.deps.Gate.TryFire(now) {
		log.Debug().Int("detections", len(batch)).Msg("Danger observed but alert suppressed by cooldown")
		return batch, nil
	}

	// The gate has committed the firing decision; everything below is slow
	// I/O and must not hold it up.
	p.fireAlert(ctx, principal, src, batch, now)

	return batch, nil
}

// persistBatch writes one detection row and one log row per detection.
// Each row is independent: a failed write is logged and the rest continue,
// so detection history survives partial persistence failures.
func (p *Pipeline) persistBatch(ctx context.Context, batch []models.Detection, principal *auth.Principal, now time.Time) {
	var userID *string
	if principal != nil {
		userID = &principal.ID
	}

	for _, d := range batch {
		rec := models.NewDetectionRecord(d, userID, now)
		if err := p.deps.Detections.Insert(ctx, rec); err != nil {
			log.Error().Err(err).Str("label", d.Label).Msg("Failed to persist detection")
		}

		entry := models.NewLogEntry(userID, d.Label, d.Confidence, "", logFrameDetection, now)
		if err := p.deps.Logs.Insert(ctx, entry); err != nil {
			log.Error().Err(err).Str("label", d.Label).Msg("Failed to persist detection log")
		}
	}
}

func (p *Pipeline) batchHasDanger(batch []models.Detection) bool {
	for _, d := range batch {
		if p.deps.Classifier.IsDanger(d.Label) {
			return true
		}
	}
	return false
}

// fireAlert renders evidence, persists the alert and log rows, and
// dispatches notifications. Failures here are logged and never abort the
// request: the response and the already-persisted detections stand.
func (p *Pipeline) fireAlert(ctx context.Context, principal *auth.Principal, src image.Image, batch []models.Detection, now time.Time) {
	top, ok := alerting.SelectTop(batch, p.deps.Classifier.IsDanger)
	if !ok {
		return
	}

	imagePath := ""
	evidence, err := p.deps.Renderer.Render(src, batch)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render evidence image")
	} else if imagePath, err = p.deps.Evidence.SaveEvidence(evidence); err != nil {
		log.Error().Err(err).Msg("Failed to save evidence image")
		imagePath = ""
	}

	var userID *string
	recipientEmail := ""
	if principal != nil {
		userID = &principal.ID
		recipientEmail = principal.Email
	}

	alert := models.NewAlert(top.Label, top.Confidence, imagePath, now)
	if err := p.deps.Alerts.Insert(ctx, alert); err != nil {
		log.Error().Err(err).Str("animal", top.Label).Msg("Failed to persist alert")
	}

	entry := models.NewLogEntry(userID, top.Label, top.Confidence, imagePath, logDangerAlert, now)
	if err := p.deps.Logs.Insert(ctx, entry); err != nil {
		log.Error().Err(err).Str("animal", top.Label).Msg("Failed to persist alert log")
	}

	outcome := p.deps.Notifier.Dispatch(ctx, top, now, recipientEmail)
	log.Info().
		Str("animal", top.Label).
		Float64("confidence", top.Confidence).
		Bool("sms_sent", outcome.SMSSent).
		Bool("email_sent", outcome.EmailSent).
		Msg("Danger alert fired")
}
