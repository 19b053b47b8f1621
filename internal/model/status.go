package model

// RequestStatus — статус жизненного цикла заявки. Закрытый набор, сравнение
// только через константы: одна таблица переходов для ручных действий и свипа.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in-progress"
	StatusCompleted  RequestStatus = "completed"
	StatusEscalated  RequestStatus = "escalated"
)

// Actor — кто инициирует переход. Гость только создаёт заявку, персонал
// ведёт её вручную, свип эскалирует просроченные автоматически.
type Actor string

const (
	ActorGuest Actor = "guest"
	ActorStaff Actor = "staff"
	ActorSweep Actor = "sweep"
)

// Valid проверяет, что строка — один из четырёх статусов.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusEscalated:
		return true
	}
	return false
}

// Terminal: из completed переходов нет.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted
}

// staffTransitions — разрешённые ручные переходы персонала.
// Возврата в pending нет ниоткуда; completed терминален.
var staffTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusEscalated},
	StatusInProgress: {StatusCompleted, StatusEscalated},
	StatusEscalated:  {StatusCompleted},
	StatusCompleted:  {},
}

// CanTransition отвечает, разрешён ли переход from → to данному актору.
// Единственный источник правды о легальности переходов: и ручные хендлеры,
// и движок эскалации сверяются здесь.
func CanTransition(actor Actor, from, to RequestStatus) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	switch actor {
	case ActorGuest:
		// Гость только создаёт заявку в pending, переходов у него нет.
		return false
	case ActorSweep:
		return to == StatusEscalated &&
			(from == StatusPending || from == StatusInProgress)
	case ActorStaff:
		for _, allowed := range staffTransitions[from] {
			if allowed == to {
				return true
			}
		}
	}
	return false
}
