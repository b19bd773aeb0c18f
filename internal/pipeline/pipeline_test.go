package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildguard/wildguard/internal/alerting"
	"github.com/wildguard/wildguard/internal/auth"
	"github.com/wildguard/wildguard/internal/classify"
	"github.com/wildguard/wildguard/internal/models"
	"github.com/wildguard/wildguard/internal/notify"
)

type fakeDetector struct {
	batch []models.Detection
	err   error
}

func (f *fakeDetector) Infer(_ context.Context, _ []byte) ([]models.Detection, error) {
	return f.batch, f.err
}

type memDetections struct {
	mu   sync.Mutex
	rows []*models.DetectionRecord
}

func (m *memDetections) Insert(_ context.Context, rec *models.DetectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rec)
	return nil
}

type memAlerts struct {
	mu   sync.Mutex
	rows []*models.Alert
	err  error
}

func (m *memAlerts) Insert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, alert)
	return nil
}

type memLogs struct {
	mu   sync.Mutex
	rows []*models.LogEntry
}

func (m *memLogs) Insert(_ context.Context, entry *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, entry)
	return nil
}

func (m *memLogs) byMessage(message string) []*models.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LogEntry
	for _, e := range m.rows {
		if e.Message == message {
			out = append(out, e)
		}
	}
	return out
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(_ image.Image, _ []models.Detection) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("evidence"), nil
}

type fakeEvidence struct {
	saved int
	err   error
}

func (f *fakeEvidence) SaveEvidence(_ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved++
	return "alert_test.jpg", nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	calls     int
	lastEmail string
	outcome   notify.Outcome
}

func (f *fakeNotifier) Dispatch(_ context.Context, _ models.Detection, _ time.Time, recipientEmail string) notify.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastEmail = recipientEmail
	return f.outcome
}

type fakeAuth map[string]*auth.Principal

func (f fakeAuth) Resolve(token string) (*auth.Principal, bool) {
	p, ok := f[token]
	return p, ok
}

type testEnv struct {
	pipeline   *Pipeline
	detections *memDetections
	alerts     *memAlerts
	logs       *memLogs
	notifier   *fakeNotifier
	gate       *alerting.Gate
	clock      *time.Time
}

func frameJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestEnv(t *testing.T, detector *fakeDetector, mutate func(*Deps)) *testEnv {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := &testEnv{
		detections: &memDetections{},
		alerts:     &memAlerts{},
		logs:       &memLogs{},
		notifier:   &fakeNotifier{outcome: notify.Outcome{SMSSent: true, EmailSent: true}},
		gate:       alerting.NewGate(15 * time.Second),
		clock:      &now,
	}

	deps := Deps{
		Detector:   detector,
		Classifier: classify.New([]string{"lion", "tiger", "elephant", "human"}),
		Gate:       env.gate,
		Renderer:   &fakeRenderer{},
		Evidence:   &fakeEvidence{},
		Detections: env.detections,
		Alerts:     env.alerts,
		Logs:       env.logs,
		Auth: fakeAuth{
			"valid-token": {ID: "user-1", Name: "Asha", Email: "asha@example.com"},
		},
		Notifier:     env.notifier,
		AuthRequired: true,
		Clock:        func() time.Time { return *env.clock },
	}
	if mutate != nil {
		mutate(&deps)
	}

	env.pipeline = New(deps)
	return env
}

func TestProcess_PersistsBatchAndReturnsIt(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{
		{Label: "deer", Confidence: 0.8, Box: models.BBox{X1: 1, Y1: 2, X2: 11, Y2: 22}},
		{Label: "zebra", Confidence: 0.6, Box: models.BBox{X1: 5, Y1: 5, X2: 9, Y2: 9}},
	}}
	env := newTestEnv(t, detector, nil)

	batch, err := env.pipeline.Process(context.Background(), "valid-token", frameJPEG(t))
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	assert.Len(t, env.detections.rows, 2)
	assert.Len(t, env.logs.byMessage("frame detection"), 2)
	assert.Empty(t, env.alerts.rows, "no danger, no alert")
	assert.Equal(t, 0, env.notifier.calls)
	assert.True(t, env.gate.LastFired().IsZero(), "gate must stay untouched without danger")

	rec := env.detections.rows[0]
	assert.Equal(t, 10.0, rec.W)
	assert.Equal(t, 20.0, rec.H)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, "user-1", *rec.UserID)
}

func TestProcess_DangerFiresAlert(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{
		{Label: "lion", Confidence: 0.9},
		{Label: "human", Confidence: 0.95},
		{Label: "deer", Confidence: 0.99},
	}}
	env := newTestEnv(t, detector, nil)

	_, err := env.pipeline.Process(context.Background(), "valid-token", frameJPEG(t))
	require.NoError(t, err)

	require.Len(t, env.alerts.rows, 1)
	alert := env.alerts.rows[0]
	assert.Equal(t, "human", alert.Animal, "most confident dangerous detection wins")
	assert.Equal(t, 0.95, alert.Confidence)
	assert.Equal(t, "alert_test.jpg", alert.ImagePath)
	assert.False(t, alert.Read)

	dangerLogs := env.logs.byMessage("DANGER ALERT")
	require.Len(t, dangerLogs, 1)
	assert.Equal(t, "human", dangerLogs[0].Animal)

	assert.Equal(t, 1, env.notifier.calls)
	assert.Equal(t, "asha@example.com", env.notifier.lastEmail)
	assert.Equal(t, *env.clock, env.gate.LastFired())
}

func TestProcess_CooldownSuppressesSecondAlert(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "lion", Confidence: 0.9}}}
	env := newTestEnv(t, detector, nil)
	frame := frameJPEG(t)

	_, err := env.pipeline.Process(context.Background(), "valid-token", frame)
	require.NoError(t, err)

	firstFired := env.gate.LastFired()
	*env.clock = env.clock.Add(5 * time.Second)

	batch, err := env.pipeline.Process(context.Background(), "valid-token", frame)
	require.NoError(t, err)
	assert.Len(t, batch, 1, "suppressed request still returns the batch")

	assert.Len(t, env.alerts.rows, 1, "cooldown must suppress the second alert")
	assert.Equal(t, 1, env.notifier.calls)
	assert.Equal(t, firstFired, env.gate.LastFired())
	assert.Len(t, env.detections.rows, 2, "detection history is persisted even when suppressed")

	*env.clock = env.clock.Add(15 * time.Second)
	_, err = env.pipeline.Process(context.Background(), "valid-token", frame)
	require.NoError(t, err)
	assert.Len(t, env.alerts.rows, 2, "alert fires again after the window elapses")
}

func TestProcess_UnauthorizedPerformsNoWork(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "lion", Confidence: 0.9}}}
	env := newTestEnv(t, detector, nil)

	_, err := env.pipeline.Process(context.Background(), "bad-token", frameJPEG(t))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, env.detections.rows)
	assert.Empty(t, env.logs.rows)
	assert.Empty(t, env.alerts.rows)
}

func TestProcess_AuthOptional(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "deer", Confidence: 0.7}}}
	env := newTestEnv(t, detector, func(d *Deps) { d.AuthRequired = false })

	batch, err := env.pipeline.Process(context.Background(), "", frameJPEG(t))
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	require.Len(t, env.detections.rows, 1)
	assert.Nil(t, env.detections.rows[0].UserID)
}

func TestProcess_InvalidImage(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "lion", Confidence: 0.9}}}
	env := newTestEnv(t, detector, nil)

	_, err := env.pipeline.Process(context.Background(), "valid-token", []byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Empty(t, env.detections.rows)
}

func TestProcess_DetectorFailure(t *testing.T) {
	detector := &fakeDetector{err: errors.New("model not loaded")}
	env := newTestEnv(t, detector, nil)

	_, err := env.pipeline.Process(context.Background(), "valid-token", frameJPEG(t))
	assert.ErrorIs(t, err, ErrDetectorUnavailable)
	assert.Empty(t, env.detections.rows)
}

func TestProcess_EmptyBatch(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{}}
	env := newTestEnv(t, detector, nil)

	batch, err := env.pipeline.Process(context.Background(), "valid-token", frameJPEG(t))
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.Empty(t, env.detections.rows)
	assert.Empty(t, env.alerts.rows)
}

func TestProcess_RenderFailureStillPersistsAlert(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "tiger", Confidence: 0.88}}}
	env := newTestEnv(t, detector, func(d *Deps) {
		d.Renderer = &fakeRenderer{err: errors.New("encode failed")}
	})

	_, err := env.pipeline.Process(context.Background(), "valid-token", frameJPEG(t))
	require.NoError(t, err, "render failure must not fail the request")

	require.Len(t, env.alerts.rows, 1)
	assert.Empty(t, env.alerts.rows[0].ImagePath)
	assert.Equal(t, 1, env.notifier.calls, "notification still goes out without evidence")
}

func TestProcess_AlertInsertFailureDoesNotFailRequest(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "lion", Confidence: 0.9}}}
	env := newTestEnv(t, detector, nil)
	env.alerts.err = errors.New("db unreachable")

	batch, err := env.pipeline.Process(context.Background(), "valid-token", frameJPEG(t))
	require.NoError(t, err)
	assert.Len(t, batch, 1)
	assert.Equal(t, 1, env.notifier.calls)
}

func TestProcess_ConcurrentDangerFiresOneAlert(t *testing.T) {
	detector := &fakeDetector{batch: []models.Detection{{Label: "lion", Confidence: 0.9}}}
	env := newTestEnv(t, detector, nil)
	frame := frameJPEG(t)

	const workers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.pipeline.Process(context.Background(), "valid-token", frame)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Len(t, env.alerts.rows, 1, "same-instant concurrent danger must fire exactly one alert")
	assert.Equal(t, 1, env.notifier.calls)
	assert.Len(t, env.detections.rows, workers, "every request persists its detections")
}
