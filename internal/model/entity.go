package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type DeviceType string

const (
	DeviceSmartphone DeviceType = "smartphone"
	DeviceLaptop     DeviceType = "laptop"
	DeviceTablet     DeviceType = "tablet"
	DeviceOther      DeviceType = "other"
)

type IssueType string

const (
	IssueConnect    IssueType = "connect"
	IssueSlow       IssueType = "slow"
	IssueDisconnect IssueType = "disconnect"
	IssueLogin      IssueType = "login"
	IssueOther      IssueType = "other"
)

// WifiRequest — заявка гостя на проблему с WiFi. Первичный ключ — трекинг-код,
// который гость вводит для отслеживания, а не серверный суррогат.
type WifiRequest struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255);not null" json:"email"`
	RoomNumber  string     `gorm:"type:varchar(32);not null" json:"room_number"`
	DeviceType  DeviceType `gorm:"type:varchar(32)" json:"device_type"`
	IssueType   IssueType  `gorm:"type:varchar(32)" json:"issue_type"`
	Description string     `gorm:"type:text" json:"description,omitempty"`

	Status RequestStatus `gorm:"type:varchar(32);index;not null" json:"status"`

	// WasEscalated монотонный: однажды true — навсегда true, даже после completed.
	WasEscalated bool `gorm:"not null;default:false" json:"was_escalated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Comments []RequestComment `gorm:"foreignKey:RequestID" json:"comments,omitempty"`
}

// RequestComment — запись аудита/переписки по заявке. Только append, без
// правок и удалений; порядок отображения — по created_at по возрастанию.
type RequestComment struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	RequestID   string    `gorm:"index;type:varchar(64);not null" json:"request_id"`
	UserName    string    `gorm:"type:varchar(255);not null" json:"user_name"`
	CommentText string    `gorm:"type:text;not null" json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// SystemUser — автор автоматических комментариев эскалации.
const SystemUser = "System"

// Дефолтные пороги эскалации в минутах.
const (
	DefaultPendingThreshold  = 20
	DefaultProgressThreshold = 45
)

// EscalationSettings — логический синглтон настроек эскалации. Хранилище
// технически допускает несколько строк, читатели берут самую старую.
type EscalationSettings struct {
	ID                uint64         `gorm:"primaryKey" json:"id"`
	Emails            datatypes.JSON `gorm:"type:jsonb" json:"-"`
	PendingThreshold  int            `json:"pending_threshold"`
	ProgressThreshold int            `json:"progress_threshold"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// EmailList разбирает JSONB-колонку emails в срез адресов. Повреждённое или
// пустое значение трактуется как пустой список, не как ошибка.
func (s *EscalationSettings) EmailList() []string {
	if len(s.Emails) == 0 {
		return nil
	}
	var emails []string
	if err := json.Unmarshal(s.Emails, &emails); err != nil {
		return nil
	}
	out := emails[:0]
	for _, e := range emails {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// SetEmails сериализует список адресов в JSONB-колонку.
func (s *EscalationSettings) SetEmails(emails []string) error {
	if emails == nil {
		emails = []string{}
	}
	raw, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	s.Emails = datatypes.JSON(raw)
	return nil
}

// PendingMinutes возвращает порог для pending с подстановкой дефолта.
func (s *EscalationSettings) PendingMinutes() int {
	if s.PendingThreshold <= 0 {
		return DefaultPendingThreshold
	}
	return s.PendingThreshold
}

// ProgressMinutes возвращает порог для in-progress с подстановкой дефолта.
func (s *EscalationSettings) ProgressMinutes() int {
	if s.ProgressThreshold <= 0 {
		return DefaultProgressThreshold
	}
	return s.ProgressThreshold
}

func (WifiRequest) TableName() string        { return "wifi_requests" }
func (RequestComment) TableName() string     { return "request_comments" }
func (EscalationSettings) TableName() string { return "escalation_settings" }
