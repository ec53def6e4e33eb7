package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuzuhara/tomosanpo/internal/models"
)

// GetOrCreateChatRoom возвращает единственную комнату пары. Создание
// идемпотентно: при гонке второй создатель упирается в уникальный
// индекс pair_key и перечитывает существующую запись.
func (d *Database) GetOrCreateChatRoom(userA, userB uuid.UUID) (*models.ChatRoom, error) {
	pairKey := models.PairKey(userA, userB)

	var room models.ChatRoom
	err := d.db.First(&room, "pair_key = ?", pairKey).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}

	room = models.ChatRoom{
		PairKey:        pairKey,
		UserAID:        userA,
		UserBID:        userB,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
	}

	if err := d.db.Create(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Комнату успел создать конкурент
			var existing models.ChatRoom
			if ferr := d.db.First(&existing, "pair_key = ?", pairKey).Error; ferr != nil {
				return nil, storeErr(ferr)
			}
			return &existing, nil
		}
		return nil, storeErr(err)
	}

	return &room, nil
}

func (d *Database) GetChatRoom(id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := d.db.First(&room, "id = ?", id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &room, nil
}

// GetUserChatRooms — список комнат пользователя, свежие сверху.
func (d *Database) GetUserChatRooms(userID uuid.UUID) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := d.db.
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_activity_at DESC").
		Find(&rooms).Error

	return rooms, storeErr(err)
}
