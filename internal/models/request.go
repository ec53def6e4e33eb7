package models

import (
	"github.com/google/uuid"
	"time"
)

const (
	KindMeal = "meal"
	KindWalk = "walk"
)

// Статусы участия пользователя в заявке. Уникальный индекс
// (request_id, user_id) гарантирует не больше одного статуса на пару.
const (
	MemberApplied     = "applied"
	MemberParticipant = "participant"
)

type Request struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	HostID          uuid.UUID `gorm:"not null;index"`
	Kind            string    `gorm:"not null;check:kind IN ('meal','walk')"`
	Content         string
	Location        string
	StartTime       time.Time `gorm:"not null;index"`
	DurationMinutes int       `gorm:"not null"`
	MaxParticipants *int      // nil = без ограничения
	VideoRoomID     string    `gorm:"not null"`
	CreatedAt       time.Time

	// Связи
	Host    User            `gorm:"foreignKey:HostID"`
	Members []RequestMember `gorm:"foreignKey:RequestID"`
}

type RequestMember struct {
	ID         uint      `gorm:"primaryKey"`
	RequestID  uuid.UUID `gorm:"not null;uniqueIndex:idx_request_user"`
	UserID     uuid.UUID `gorm:"not null;uniqueIndex:idx_request_user"`
	Status     string    `gorm:"not null;check:status IN ('applied','participant')"`
	AppliedAt  time.Time
	ApprovedAt *time.Time

	User User `gorm:"foreignKey:UserID"`
}

// Expired сообщает, что время начала уже прошло. Просроченные заявки
// не удаляются, они только выпадают из активных списков.
func (r *Request) Expired(now time.Time) bool {
	return !r.StartTime.After(now)
}

// Applicants возвращает участников со статусом applied.
func (r *Request) Applicants() []RequestMember {
	return r.membersWith(MemberApplied)
}

// Participants возвращает одобренных участников.
func (r *Request) Participants() []RequestMember {
	return r.membersWith(MemberParticipant)
}

func (r *Request) membersWith(status string) []RequestMember {
	out := make([]RequestMember, 0, len(r.Members))
	for _, m := range r.Members {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}
