package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open открывает gorm-подключение к postgres.
func Open(dsn string) (*gorm.DB, error) {
	// TranslateError нужен, чтобы нарушение unique constraint по трекинг-коду
	// приходило как gorm.ErrDuplicatedKey и запускало retry с новым суффиксом.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}
