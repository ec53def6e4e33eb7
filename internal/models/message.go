package models

import (
	"github.com/google/uuid"
	"time"
)

// Message append-only: редактирование и удаление не поддерживаются.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"not null;index"`
	SenderID  uuid.UUID `gorm:"not null"`
	Body      string    `gorm:"not null"`
	SentAt    time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	// Связи
	Sender User          `gorm:"foreignKey:SenderID"`
	Reads  []MessageRead `gorm:"foreignKey:MessageID"`
}

// MessageRead — отметка о прочтении. Записи только добавляются.
type MessageRead struct {
	ID        uint      `gorm:"primaryKey"`
	MessageID uuid.UUID `gorm:"not null;uniqueIndex:idx_message_reader"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_message_reader"`
	ReadAt    time.Time
}

// ReadBy проверяет, прочитал ли userID сообщение.
func (m *Message) ReadBy(userID uuid.UUID) bool {
	for _, r := range m.Reads {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
