package notifications

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

// Dispatcher рассылает уведомления о переходах статусов заявок.
// Вызывается после коммита: сбой доставки логируется и не откатывает
// уже применённое изменение.
type Dispatcher struct {
	db  *database.Database
	hub *ws.Hub
}

func NewDispatcher(db *database.Database, hub *ws.Hub) *Dispatcher {
	return &Dispatcher{db: db, hub: hub}
}

// Emit сохраняет уведомление и проталкивает его на соединения адресата.
func (d *Dispatcher) Emit(recipientID, actorID uuid.UUID, kind string, requestID uuid.UUID) {
	n := &models.Notification{
		RecipientID:     recipientID,
		ActorID:         actorID,
		Kind:            kind,
		SourceRequestID: requestID,
		Body:            d.buildBody(actorID, kind),
	}

	if err := d.db.SaveNotification(n); err != nil {
		log.Printf("Failed to save notification %s for %s: %v", kind, recipientID, err)
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		log.Printf("Failed to marshal notification %s: %v", n.ID, err)
		return
	}

	d.hub.Publish(ws.Event{
		Type:      ws.TypeNotification,
		UserID:    actorID,
		Recipient: &recipientID,
		RequestID: &requestID,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (d *Dispatcher) buildBody(actorID uuid.UUID, kind string) string {
	name := "Кто-то"
	if actor, err := d.db.GetUser(actorID.String()); err == nil {
		name = actor.Username
	}

	switch kind {
	case models.NotifApplied:
		return fmt.Sprintf("%s откликнулся на вашу заявку", name)
	case models.NotifApproved:
		return fmt.Sprintf("%s одобрил вашу заявку", name)
	case models.NotifRejected:
		return fmt.Sprintf("%s отклонил вашу заявку", name)
	case models.NotifRemoved:
		return fmt.Sprintf("%s исключил вас из встречи", name)
	default:
		return name
	}
}

func (d *Dispatcher) ListUnread(recipientID uuid.UUID) ([]models.Notification, error) {
	return d.db.GetUnreadNotifications(recipientID)
}

func (d *Dispatcher) CountUnread(recipientID uuid.UUID) (int64, error) {
	return d.db.CountUnreadNotifications(recipientID)
}

// MarkRead идемпотентен: повторная отметка того же уведомления — не
// ошибка.
func (d *Dispatcher) MarkRead(id string, recipientID uuid.UUID) error {
	return d.db.MarkNotificationRead(id, recipientID)
}

func (d *Dispatcher) MarkAllRead(recipientID uuid.UUID) error {
	return d.db.MarkAllNotificationsRead(recipientID)
}
