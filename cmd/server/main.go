package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pg/pg"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	mailer "github.com/kmcoleman/bajarun-mailer"
	"github.com/kmcoleman/bajarun-mailer/provider/sendgrid"
	"github.com/kmcoleman/bajarun-mailer/provider/smtp"
	gopg "github.com/kmcoleman/bajarun-mailer/storage/go-pg"
)

type config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	APIPort     string `envconfig:"API_PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	AdminToken  string `envconfig:"ADMIN_TOKEN" default:""`

	SendgridKey string `envconfig:"SENDGRID_API_KEY" default:""`
	FromEmail   string `envconfig:"FROM_EMAIL" default:"noreply@bajarun.example"`
	FromName    string `envconfig:"FROM_NAME" default:"Bajarun"`
	ReplyTo     string `envconfig:"REPLY_TO" default:""`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	SendTimeout         time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	MaxTriggersPerEvent int           `envconfig:"MAX_TRIGGERS_PER_EVENT" default:"50"`
	BulkWorkerCount     int           `envconfig:"BULK_WORKER_COUNT" default:"5"`
	BulkRateLimit       int           `envconfig:"BULK_RATE_LIMIT" default:"10"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	pgOptions, err := pg.ParseURL(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("invalid database url")
	}

	db := pg.Connect(pgOptions)
	defer db.Close()

	transport := buildTransport(cfg)

	app, err := mailer.NewApplication(
		mailer.SetLogger(logger),
		mailer.SetTemplateRepo(gopg.NewTemplateRepository(db)),
		mailer.SetTriggerRepo(gopg.NewTriggerRepository(db)),
		mailer.SetLogRepo(gopg.NewLogRepository(db)),
		mailer.SetEmailTransport(transport),
		mailer.SetSendTimeout(cfg.SendTimeout),
		mailer.SetMaxTriggersPerEvent(cfg.MaxTriggersPerEvent),
		mailer.SetBulkWorkerCount(cfg.BulkWorkerCount),
		mailer.SetBulkRateLimit(cfg.BulkRateLimit),
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to assemble application")
	}

	mailer.RegisterMetrics()

	handler := app.HttpHandler()
	if cfg.AdminToken != "" {
		handler.SetAdminToken(cfg.AdminToken)
	}

	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: handler.Router(),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.WithField("port", cfg.MetricsPort).Info("metrics server started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("metrics server error")
		}
	}()

	go func() {
		logger.WithField("port", cfg.APIPort).Info("api server started")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("api server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("api shutdown failed")
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("metrics shutdown failed")
	}

	logger.Info("shutdown complete")
}

// buildTransport prefers sendgrid when an api key is configured and falls
// back to plain smtp, which is what local development runs against.
func buildTransport(cfg config) mailer.EmailTransport {
	if cfg.SendgridKey != "" {
		options := []sendgrid.SendgridOption{
			sendgrid.SetFrom(cfg.FromEmail, cfg.FromName),
		}

		if cfg.ReplyTo != "" {
			options = append(options, sendgrid.SetReplyTo(cfg.ReplyTo))
		}

		return sendgrid.NewSendgridTransport(cfg.SendgridKey, options...)
	}

	return smtp.NewSmtpTransport(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.FromEmail,
		smtp.SetCredentials(cfg.SMTPUser, cfg.SMTPPassword),
	)
}
