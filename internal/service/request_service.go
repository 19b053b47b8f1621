package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/wifi-portal/request-service/internal/errs"
	"github.com/wifi-portal/request-service/internal/model"
	"github.com/wifi-portal/request-service/internal/tracking"
	"gorm.io/gorm"
)

// TransitionResult — исход перехода статуса с учётом best-effort побочных
// шагов. Статус — источник правды; комментарий и уведомление после него не
// откатывают уже закоммиченный переход.
type TransitionResult struct {
	Transitioned   bool `json:"transitioned"`
	CommentWritten bool `json:"comment_written"`
	Notified       bool `json:"notified"`
}

// ListFilter — фильтры стаф-дашборда для списка заявок.
type ListFilter struct {
	Status        model.RequestStatus
	EscalatedEver bool
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// Stats — счётчики дашборда. Escalated считает «прошедшие через эскалацию»:
// текущий статус escalated либо completed с was_escalated.
type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Escalated  int64 `json:"escalated"`
}

type RequestService struct {
	db *gorm.DB
}

func NewRequestService(db *gorm.DB) *RequestService {
	return &RequestService{db: db}
}

// Create сохраняет новую гостевую заявку в pending, присваивая трекинг-код.
// Кандидат проверяется на существование; при коллизии добавляется случайный
// суффикс, финальный арбитр уникальности — первичный ключ. После
// tracking.MaxAttempts неудач возвращается errs.ErrTrackingIDExhausted.
func (s *RequestService) Create(ctx context.Context, r *model.WifiRequest) error {
	r.Status = model.StatusPending
	r.WasEscalated = false

	candidate := tracking.Generate(r.Name, r.RoomNumber)
	id := candidate
	var exists int64
	if err := s.db.WithContext(ctx).Model(&model.WifiRequest{}).
		Where("id = ?", id).Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		id = tracking.WithSuffix(candidate)
	}

	for attempt := 0; attempt < tracking.MaxAttempts; attempt++ {
		r.ID = id
		err := s.db.WithContext(ctx).Create(r).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		id = tracking.WithSuffix(candidate)
	}
	return errs.ErrTrackingIDExhausted
}

// GetByID возвращает заявку с комментариями (по возрастанию created_at).
func (s *RequestService) GetByID(ctx context.Context, id string) (*model.WifiRequest, error) {
	var r model.WifiRequest
	err := s.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&r, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRequestNotFound
		}
		return nil, err
	}
	return &r, nil
}

// List возвращает страницу заявок по фильтрам дашборда и общее количество.
func (s *RequestService) List(ctx context.Context, f ListFilter) ([]model.WifiRequest, int64, error) {
	var items []model.WifiRequest
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.WifiRequest{})
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.EscalatedEver {
		// Вкладка «эскалации»: сейчас в escalated либо завершены после эскалации.
		tx = tx.Where("status = ? OR was_escalated", model.StatusEscalated)
	}
	if f.From != nil {
		tx = tx.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("created_at <= ?", *f.To)
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	if f.Offset > 0 {
		tx = tx.Offset(f.Offset)
	}
	if err := tx.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats считает счётчики дашборда в необязательном диапазоне дат по created_at.
func (s *RequestService) Stats(ctx context.Context, from, to *time.Time) (Stats, error) {
	var out Stats
	base := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&model.WifiRequest{})
		if from != nil {
			tx = tx.Where("created_at >= ?", *from)
		}
		if to != nil {
			tx = tx.Where("created_at <= ?", *to)
		}
		return tx
	}
	if err := base().Count(&out.Total).Error; err != nil {
		return out, err
	}
	if err := base().Where("status = ?", model.StatusPending).Count(&out.Pending).Error; err != nil {
		return out, err
	}
	if err := base().Where("status = ?", model.StatusInProgress).Count(&out.InProgress).Error; err != nil {
		return out, err
	}
	if err := base().Where("status = ?", model.StatusCompleted).Count(&out.Completed).Error; err != nil {
		return out, err
	}
	if err := base().Where("status = ? OR was_escalated", model.StatusEscalated).Count(&out.Escalated).Error; err != nil {
		return out, err
	}
	return out, nil
}

// Transition выполняет переход статуса от имени актора. Легальность проверяет
// единая таблица model.CanTransition; сама запись — условный UPDATE
// «WHERE id = ? AND status = <ожидаемый>», так что проигравший гонку получает
// Transitioned=false без двойной эскалации. Непустой comment пишется после
// коммита статуса best-effort: его отказ не откатывает переход.
func (s *RequestService) Transition(ctx context.Context, id string, to model.RequestStatus, actor model.Actor, userName, comment string) (TransitionResult, error) {
	var res TransitionResult
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return res, err
	}
	if !model.CanTransition(actor, req.Status, to) {
		return res, errs.ErrInvalidTransition
	}

	changes := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == model.StatusEscalated || req.WasEscalated {
		// was_escalated монотонный: ставится при эскалации и больше не снимается.
		changes["was_escalated"] = true
	}
	tx := s.db.WithContext(ctx).Model(&model.WifiRequest{}).
		Where("id = ? AND status = ?", id, req.Status).
		Updates(changes)
	if tx.Error != nil {
		return res, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Конкурентный переход успел раньше; наша запись — no-op.
		return res, nil
	}
	res.Transitioned = true

	if comment != "" {
		if err := s.AddComment(ctx, id, userName, comment); err != nil {
			log.Printf("service: comment for request %s not written: %v", id, err)
			return res, nil
		}
		res.CommentWritten = true
	}
	return res, nil
}

// AddComment добавляет запись в трейл заявки. Только append.
func (s *RequestService) AddComment(ctx context.Context, requestID, userName, text string) error {
	c := model.RequestComment{
		RequestID:   requestID,
		UserName:    userName,
		CommentText: text,
	}
	return s.db.WithContext(ctx).Create(&c).Error
}

// ListComments возвращает трейл заявки по возрастанию created_at.
func (s *RequestService) ListComments(ctx context.Context, requestID string) ([]model.RequestComment, error) {
	var items []model.RequestComment
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ListOverdue выбирает заявки в статусе status, у которых поле ageField
// (created_at либо updated_at) старше cutoff. Кандидаты свипа эскалаций.
func (s *RequestService) ListOverdue(ctx context.Context, status model.RequestStatus, ageField string, cutoff time.Time) ([]model.WifiRequest, error) {
	if ageField != "created_at" && ageField != "updated_at" {
		return nil, errors.New("service: ageField must be created_at or updated_at")
	}
	var items []model.WifiRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Where(ageField+" < ?", cutoff).
		Find(&items).Error
	return items, err
}

// EscalateOverdue — условный переход кандидата свипа в escalated. Guard по
// исходному статусу делает повторную обработку самокорректирующейся: если
// заявку уже эскалировали (свип-гонка или персонал вручную), вернётся false.
func (s *RequestService) EscalateOverdue(ctx context.Context, id string, from model.RequestStatus) (bool, error) {
	if !model.CanTransition(model.ActorSweep, from, model.StatusEscalated) {
		return false, errs.ErrInvalidTransition
	}
	tx := s.db.WithContext(ctx).Model(&model.WifiRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":        model.StatusEscalated,
			"was_escalated": true,
			"updated_at":    time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
