package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatRoom — единственная личная переписка для пары пользователей.
// PairKey строится из отсортированных id, уникальный индекс делает
// повторное создание для той же пары невозможным.
type ChatRoom struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	PairKey        string    `gorm:"uniqueIndex;not null"`
	UserAID        uuid.UUID `gorm:"not null;index"`
	UserBID        uuid.UUID `gorm:"not null;index"`
	LastMessage    string
	LastActivityAt time.Time
	CreatedAt      time.Time
}

// PairKey канонический ключ неупорядоченной пары пользователей.
func PairKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	if ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return strings.Join(ids, ":")
}

// HasMember проверяет членство в комнате.
func (c *ChatRoom) HasMember(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherMember возвращает собеседника для userID.
func (c *ChatRoom) OtherMember(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}
