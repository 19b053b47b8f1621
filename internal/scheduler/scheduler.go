// Package scheduler запускает свип эскалаций по расписанию внутри процесса.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wifi-portal/request-service/internal/escalation"
)

type Scheduler struct {
	cron    *cron.Cron
	sweeper *escalation.Sweeper
}

func New(sweeper *escalation.Sweeper) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
	}
}

// Register добавляет job свипа по cron-выражению ("@every 5m" и т.п.).
func (s *Scheduler) Register(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.runSweep)
	if err != nil {
		return err
	}
	log.Printf("scheduler: sweep registered with schedule %q", schedule)
	return nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := s.sweeper.Run(ctx)
	if err != nil {
		// Следующий плановый прогон повторит попытку.
		log.Printf("scheduler: sweep failed: %v", err)
		return
	}
	if res.EscalatedCount > 0 {
		log.Printf("scheduler: sweep done: %s", res.Message)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("scheduler: started")
}

// Stop останавливает планировщик и ждёт завершения запущенных jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("scheduler: stopped")
	case <-time.After(30 * time.Second):
		log.Println("scheduler: stop timeout reached")
	}
}
