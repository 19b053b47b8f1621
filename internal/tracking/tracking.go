// Package tracking генерирует гостевые трекинг-коды заявок: короткие,
// печатаемые, выводимые из имени и номера комнаты.
package tracking

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// MaxAttempts — сколько раз создание заявки пробует новый суффикс, прежде чем
// сдаться. Уникальность в итоге гарантирует первичный ключ хранилища, а не
// генератор.
const MaxAttempts = 5

// Generate строит кандидата трекинг-кода: первые 4 символа имени в нижнем
// регистре (меньше, если имя короче; пустое имя даёт пустой префикс) плюс
// номер комнаты без пробельных символов.
func Generate(name, roomNumber string) string {
	prefix := strings.ToLower(name)
	if runes := []rune(prefix); len(runes) > 4 {
		prefix = string(runes[:4])
	}
	room := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, roomNumber)
	return prefix + room
}

// WithSuffix добавляет к кандидату случайный суффикс -0..-99. Коллизии это
// лишь разрежает, не исключает: финальная проверка — unique constraint на id.
func WithSuffix(candidate string) string {
	return fmt.Sprintf("%s-%d", candidate, rand.Intn(100))
}
