package models

import (
	"github.com/google/uuid"
	"time"
)

const (
	NotifApplied  = "applied"
	NotifApproved = "approved"
	NotifRejected = "rejected"
	NotifRemoved  = "removed"
)

// Notification переживает удаление исходной заявки: SourceRequestID —
// обычная колонка без внешнего ключа.
type Notification struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecipientID     uuid.UUID `gorm:"not null;index"`
	ActorID         uuid.UUID `gorm:"not null"`
	Kind            string    `gorm:"not null;check:kind IN ('applied','approved','rejected','removed')"`
	SourceRequestID uuid.UUID `gorm:"not null"`
	Body            string
	Read            bool `gorm:"not null;default:false"`
	CreatedAt       time.Time
}
