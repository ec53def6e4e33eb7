package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/models"
)

func (d *Database) SaveUser(user *models.User) error {
	return storeErr(d.db.Create(user).Error)
}

func (d *Database) UpdateUser(user *models.User) error {
	return storeErr(d.db.Save(user).Error)
}

func (d *Database) GetUser(id string) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// GetUsersByIDs — пакетная загрузка для резолва отображаемых имён.
func (d *Database) GetUsersByIDs(ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := d.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

func (d *Database) FindUserByEmail(email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

func (d *Database) SearchUsersByUsername(query string) ([]models.User, error) {
	var users []models.User
	err := d.db.
		Where("username LIKE ?", "%"+query+"%").
		Limit(20).
		Find(&users).Error

	return users, storeErr(err)
}

func (d *Database) UpdateLastSeen(id string) error {
	err := d.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("last_seen_at", time.Now()).Error

	return storeErr(err)
}
