package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yuzuhara/tomosanpo/internal/models"
)

// SaveMessage сохраняет сообщение и в той же транзакции обновляет
// сводку комнаты. SentAt выставляет вызывающий.
func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return storeErr(err)
		}

		err := tx.Model(&models.ChatRoom{}).
			Where("id = ?", message.RoomID).
			Updates(map[string]interface{}{
				"last_message":     message.Body,
				"last_activity_at": message.SentAt,
			}).Error

		return storeErr(err)
	})
}

// GetRoomMessages возвращает сообщения по возрастанию (sent_at, id),
// с пагинацией назад от beforeID. Курсор составной: сообщения с тем же
// sent_at, что у якоря, не выпадают из выдачи.
func (d *Database) GetRoomMessages(roomID string, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	query := d.db.Where("room_id = ?", roomID)

	if beforeID != nil {
		var beforeMsg models.Message
		if err := d.db.First(&beforeMsg, "id = ?", beforeID).Error; err == nil {
			query = query.Where(
				"sent_at < ? OR (sent_at = ? AND id < ?)",
				beforeMsg.SentAt, beforeMsg.SentAt, beforeMsg.ID,
			)
		}
	}

	var messages []models.Message
	err := query.
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Preload("Sender").
		Preload("Reads").
		Find(&messages).Error
	if err != nil {
		return nil, storeErr(err)
	}

	// Старые сообщения первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkRoomRead отмечает все чужие сообщения комнаты прочитанными.
// Отметки только добавляются, повторный вызов ничего не меняет.
func (d *Database) MarkRoomRead(roomID string, userID uuid.UUID, now time.Time) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var unread []models.Message
		err := tx.
			Where("room_id = ? AND sender_id <> ?", roomID, userID).
			Where("id NOT IN (?)", tx.
				Model(&models.MessageRead{}).
				Select("message_id").
				Where("user_id = ?", userID)).
			Find(&unread).Error
		if err != nil {
			return storeErr(err)
		}

		if len(unread) == 0 {
			return nil
		}

		reads := make([]models.MessageRead, len(unread))
		for i, msg := range unread {
			reads[i] = models.MessageRead{
				MessageID: msg.ID,
				UserID:    userID,
				ReadAt:    now,
			}
		}

		err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reads).Error
		return storeErr(err)
	})
}

// CountUnread — чужие сообщения комнаты без отметки о прочтении.
func (d *Database) CountUnread(roomID string, userID uuid.UUID) (int64, error) {
	var count int64
	err := d.db.Model(&models.Message{}).
		Where("room_id = ? AND sender_id <> ?", roomID, userID).
		Where("id NOT IN (?)", d.db.
			Model(&models.MessageRead{}).
			Select("message_id").
			Where("user_id = ?", userID)).
		Count(&count).Error

	return count, storeErr(err)
}
