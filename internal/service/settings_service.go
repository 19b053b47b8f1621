package service

import (
	"context"
	"errors"
	"time"

	"github.com/wifi-portal/request-service/internal/model"
	"gorm.io/gorm"
)

// SettingsService — доступ к логическому синглтону настроек эскалации.
// Вместо разбросанных по вызывающим местам веток insert-vs-update здесь один
// аккессор get-or-create с явными дефолтами.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// GetOrCreate возвращает строку настроек, создавая дефолтную (пустой список
// адресов, пороги 20/45) при её отсутствии. Если строк несколько, берётся
// самая старая — потребители обязаны терпеть лишние строки.
func (s *SettingsService) GetOrCreate(ctx context.Context) (*model.EscalationSettings, error) {
	var settings model.EscalationSettings
	err := s.db.WithContext(ctx).Order("created_at ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = model.EscalationSettings{
		PendingThreshold:  model.DefaultPendingThreshold,
		ProgressThreshold: model.DefaultProgressThreshold,
	}
	if err := settings.SetEmails(nil); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save обновляет синглтон. Дубликаты адресов здесь не отсекаются — это
// забота UI-границы, ядро обязано переживать неуникальный список.
func (s *SettingsService) Save(ctx context.Context, emails []string, pendingThreshold, progressThreshold int) (*model.EscalationSettings, error) {
	settings, err := s.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	if err := settings.SetEmails(emails); err != nil {
		return nil, err
	}
	settings.PendingThreshold = pendingThreshold
	settings.ProgressThreshold = progressThreshold
	settings.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
