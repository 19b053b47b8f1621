package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wifi-portal/request-service/internal/config"
	"github.com/wifi-portal/request-service/internal/database"
	"github.com/wifi-portal/request-service/internal/escalation"
	"github.com/wifi-portal/request-service/internal/kafka"
	"github.com/wifi-portal/request-service/internal/mailer"
	"github.com/wifi-portal/request-service/internal/service"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one escalation sweep and exit. Same logic as POST /escalate-requests.",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicRequest)
	defer producer.Close()

	sweeper := escalation.NewSweeper(escalation.Deps{
		Requests: service.NewRequestService(db),
		Settings: service.NewSettingsService(db),
		Notifier: mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From),
		Producer: producer,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	res, err := sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	log.Printf("sweep: %s (escalated %d)", res.Message, res.EscalatedCount)
	return nil
}
