package database

import (
	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
	"github.com/yuzuhara/tomosanpo/internal/models"
)

func (d *Database) SaveNotification(n *models.Notification) error {
	return storeErr(d.db.Create(n).Error)
}

// MarkNotificationRead идемпотентно переводит read в true. Работает и
// после удаления исходной заявки: ссылка — обычная колонка.
func (d *Database) MarkNotificationRead(id string, recipientID uuid.UUID) error {
	res := d.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := d.db.Model(&models.Notification{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return storeErr(err)
		}
		if count == 0 {
			return apperrors.NotFound("notification not found")
		}
		// Уже прочитано либо чужое; чужое — запрет
		var n models.Notification
		if err := d.db.First(&n, "id = ?", id).Error; err != nil {
			return storeErr(err)
		}
		if n.RecipientID != recipientID {
			return apperrors.Authorization("notification belongs to another user")
		}
	}
	return nil
}

func (d *Database) MarkAllNotificationsRead(recipientID uuid.UUID) error {
	err := d.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error

	return storeErr(err)
}

func (d *Database) GetUnreadNotifications(recipientID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.db.
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Order("created_at DESC").
		Find(&notifications).Error

	return notifications, storeErr(err)
}

func (d *Database) CountUnreadNotifications(recipientID uuid.UUID) (int64, error) {
	var count int64
	err := d.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error

	return count, storeErr(err)
}
