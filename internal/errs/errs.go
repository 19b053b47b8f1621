package errs

import "errors"

var (
	// ErrRequestNotFound — заявка с таким трекинг-кодом не найдена.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidTransition — переход статуса запрещён таблицей переходов.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTrackingIDExhausted — не удалось подобрать уникальный трекинг-код за
	// отведённое число попыток. Ошибка retryable: клиент может повторить запрос.
	ErrTrackingIDExhausted = errors.New("tracking id collisions exhausted retries")
)
