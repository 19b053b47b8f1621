// Package escalation — движок свипа эскалаций: находит заявки, зависшие в
// pending или in-progress дольше настроенных порогов, переводит их в
// escalated, пишет системный комментарий и best-effort рассылает уведомления.
package escalation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wifi-portal/request-service/internal/kafka"
	"github.com/wifi-portal/request-service/internal/model"
)

// RequestStore — операции хранилища, нужные свипу.
type RequestStore interface {
	ListOverdue(ctx context.Context, status model.RequestStatus, ageField string, cutoff time.Time) ([]model.WifiRequest, error)
	EscalateOverdue(ctx context.Context, id string, from model.RequestStatus) (bool, error)
	AddComment(ctx context.Context, requestID, userName, text string) error
}

// SettingsStore — доступ к синглтону настроек эскалации.
type SettingsStore interface {
	GetOrCreate(ctx context.Context) (*model.EscalationSettings, error)
}

// Notifier — канал уведомлений об эскалации (почта). Возвращает, дошло ли.
type Notifier interface {
	Notify(r *model.WifiRequest, recipients []string, reason string) bool
}

// Deps — зависимости свипера.
type Deps struct {
	Requests RequestStore
	Settings SettingsStore
	Notifier Notifier
	Producer kafka.RequestEventProducer
}

// Result — структурированный итог свипа для тоста в дашборде или лога.
type Result struct {
	Success        bool   `json:"success"`
	EscalatedCount int    `json:"escalatedCount"`
	Message        string `json:"message"`
}

// Sweeper выполняет свипы. now подменяется в тестах, по умолчанию time.Now.
type Sweeper struct {
	Deps
	now func() time.Time
}

func NewSweeper(deps Deps) *Sweeper {
	return &Sweeper{Deps: deps, now: time.Now}
}

// Run выполняет один свип. Безопасен к повторным и конкурентным запускам:
// переход каждого кандидата — условная запись, проигравший гонку получает
// no-op и не попадает в счётчик. Ошибка чтения настроек или кандидатов
// фатальна для всего прогона; ошибки по отдельным кандидатам изолированы.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	settings, err := s.Settings.GetOrCreate(ctx)
	if err != nil {
		return Result{Message: "failed to load escalation settings"}, fmt.Errorf("escalation settings: %w", err)
	}

	emails := settings.EmailList()
	if len(emails) == 0 {
		// Поведение источника сохранено намеренно: без адресатов свип не
		// эскалирует вовсе, просроченные заявки ждут настройки списка.
		log.Println("escalation: no emails configured, skipping sweep")
		return Result{Success: true, Message: "No escalation emails configured"}, nil
	}

	now := s.now()
	pendingMin := settings.PendingMinutes()
	progressMin := settings.ProgressMinutes()

	// pending меряется от created_at, in-progress — от updated_at: перевод в
	// работу сбрасывает часы эскалации.
	pendingCutoff := now.Add(-time.Duration(pendingMin) * time.Minute)
	pending, err := s.Requests.ListOverdue(ctx, model.StatusPending, "created_at", pendingCutoff)
	if err != nil {
		return Result{Message: "failed to query pending requests"}, fmt.Errorf("list overdue pending: %w", err)
	}

	progressCutoff := now.Add(-time.Duration(progressMin) * time.Minute)
	inProgress, err := s.Requests.ListOverdue(ctx, model.StatusInProgress, "updated_at", progressCutoff)
	if err != nil {
		return Result{Message: "failed to query in-progress requests"}, fmt.Errorf("list overdue in-progress: %w", err)
	}

	candidates := append(pending, inProgress...)
	if len(candidates) == 0 {
		return Result{Success: true, Message: "No requests to escalate"}, nil
	}
	log.Printf("escalation: found %d requests to escalate", len(candidates))

	escalated := 0
	for i := range candidates {
		if s.processCandidate(ctx, &candidates[i], emails, pendingMin, progressMin) {
			escalated++
		}
	}

	return Result{
		Success:        true,
		EscalatedCount: escalated,
		Message:        fmt.Sprintf("Escalated %d requests", escalated),
	}, nil
}

// processCandidate обрабатывает одного кандидата: условный переход статуса,
// затем системный комментарий, затем уведомление — строго в этом порядке,
// комментарий и письмо ссылаются на уже совершённую эскалацию. Возвращает
// true только если переход реально состоялся.
func (s *Sweeper) processCandidate(ctx context.Context, r *model.WifiRequest, emails []string, pendingMin, progressMin int) bool {
	ok, err := s.Requests.EscalateOverdue(ctx, r.ID, r.Status)
	if err != nil {
		log.Printf("escalation: status update for request %s: %v", r.ID, err)
		return false
	}
	if !ok {
		// Кто-то эскалировал раньше (гонка свипов или ручное действие персонала).
		log.Printf("escalation: request %s already escalated, skipping", r.ID)
		return false
	}

	reason := s.reasonFor(r.Status, pendingMin, progressMin)
	if err := s.Requests.AddComment(ctx, r.ID, model.SystemUser, reason); err != nil {
		// Статус уже закоммичен; отсутствие комментария — partial success.
		log.Printf("escalation: comment for request %s: %v", r.ID, err)
	}

	if s.Notifier != nil {
		s.Notifier.Notify(r, emails, reason)
	}
	if s.Producer != nil {
		s.Producer.ProduceRequestEvent(ctx, "request_escalated", map[string]interface{}{
			"request_id":  r.ID,
			"room_number": r.RoomNumber,
			"issue_type":  string(r.IssueType),
			"device_type": string(r.DeviceType),
			"status":      string(model.StatusEscalated),
		})
	}
	return true
}

// reasonFor формирует текст системного комментария с фактически настроенным
// порогом, а не захардкоженными минутами.
func (s *Sweeper) reasonFor(from model.RequestStatus, pendingMin, progressMin int) string {
	var breached string
	if from == model.StatusPending {
		breached = fmt.Sprintf("pending for %d+ minutes", pendingMin)
	} else {
		breached = fmt.Sprintf("in progress for %d+ minutes", progressMin)
	}
	return fmt.Sprintf("This request was automatically escalated because it was %s without resolution.", breached)
}
