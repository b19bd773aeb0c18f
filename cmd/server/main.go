package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wildguard/wildguard/internal/alerting"
	"github.com/wildguard/wildguard/internal/api"
	"github.com/wildguard/wildguard/internal/auth"
	"github.com/wildguard/wildguard/internal/classify"
	"github.com/wildguard/wildguard/internal/config"
	"github.com/wildguard/wildguard/internal/database"
	"github.com/wildguard/wildguard/internal/detect"
	"github.com/wildguard/wildguard/internal/notify"
	"github.com/wildguard/wildguard/internal/pipeline"
	"github.com/wildguard/wildguard/internal/render"
	"github.com/wildguard/wildguard/internal/storage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	localStorage, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	db, err := database.NewDB(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	detectionRepo := database.NewDetectionRepo(db)
	alertRepo := database.NewAlertRepo(db)
	logRepo := database.NewLogRepo(db)
	userRepo := database.NewUserRepo(db)

	authService := auth.NewService(userRepo, auth.NewTokenStore(cfg.TokenTTL))

	detector := detect.NewHTTPDetector(detect.Config{
		URL:                 cfg.DetectorURL,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, cfg.DetectorTimeout)

	dispatcher := notify.NewDispatcher(
		notify.SMSConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
			To:         cfg.AlertSMSTo,
		},
		notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		},
	)

	p := pipeline.New(pipeline.Deps{
		Detector:     detector,
		Classifier:   classify.New(cfg.DangerLabels),
		Gate:         alerting.NewGate(cfg.AlertCooldown),
		Renderer:     render.NewRenderer(cfg.FontPath),
		Evidence:     localStorage,
		Detections:   detectionRepo,
		Alerts:       alertRepo,
		Logs:         logRepo,
		Auth:         authService,
		Notifier:     dispatcher,
		AuthRequired: cfg.AuthRequired,
	})

	app := &api.App{
		Pipeline:      p,
		Auth:          authService,
		Storage:       localStorage,
		DetectionRepo: detectionRepo,
		AlertRepo:     alertRepo,
		LogRepo:       logRepo,
		MaxUploadSize: cfg.MaxUploadSize,
	}

	router := api.NewRouter(app)

	log.Info().
		Int("port", cfg.Port).
		Str("db_path", cfg.DBPath).
		Str("upload_dir", cfg.UploadDir).
		Str("detector_url", cfg.DetectorURL).
		Strs("danger_labels", cfg.DangerLabels).
		Dur("alert_cooldown", cfg.AlertCooldown).
		Bool("auth_required", cfg.AuthRequired).
		Msg("Server starting")

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), router); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
