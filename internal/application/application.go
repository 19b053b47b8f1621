package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/wifi-portal/request-service/internal/config"
	"github.com/wifi-portal/request-service/internal/database"
	"github.com/wifi-portal/request-service/internal/escalation"
	"github.com/wifi-portal/request-service/internal/handler"
	"github.com/wifi-portal/request-service/internal/kafka"
	"github.com/wifi-portal/request-service/internal/mailer"
	"github.com/wifi-portal/request-service/internal/router"
	"github.com/wifi-portal/request-service/internal/scheduler"
	"github.com/wifi-portal/request-service/internal/service"
)

// API — приложение для режима api: HTTP-сервер плюс внутрипроцессный
// планировщик свипа эскалаций.
type API struct {
	cfg      *config.Config
	httpSrv  *http.Server
	sched    *scheduler.Scheduler
	producer *kafka.Producer
}

// NewAPI собирает приложение: миграции, хранилище, сервисы, свипер, роутер.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	requestSvc := service.NewRequestService(db)
	settingsSvc := service.NewSettingsService(db)
	mail := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicRequest)

	sweeper := escalation.NewSweeper(escalation.Deps{
		Requests: requestSvc,
		Settings: settingsSvc,
		Notifier: mail,
		Producer: producer,
	})

	sched := scheduler.New(sweeper)
	if cfg.SweepSchedule != "" {
		if err := sched.Register(cfg.SweepSchedule); err != nil {
			return nil, fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
		}
	}

	mux := router.New(router.Deps{
		Request:  handler.NewRequestHandler(requestSvc, producer),
		Settings: handler.NewSettingsHandler(settingsSvc),
		Escalate: handler.NewEscalateHandler(sweeper),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		httpSrv:  httpSrv,
		sched:    sched,
		producer: producer,
	}, nil
}

// Run запускает HTTP-сервер и планировщик, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.httpSrv.Addr)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  API v1:        %s/api/v1/", base)
	log.Printf("  Sweep trigger: POST %s/escalate-requests", base)

	a.sched.Start()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	a.sched.Stop()
	if err := a.producer.Close(); err != nil {
		log.Printf("kafka: close: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
