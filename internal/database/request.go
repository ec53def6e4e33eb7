package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
	"github.com/yuzuhara/tomosanpo/internal/models"
)

func (d *Database) CreateRequest(req *models.Request) error {
	return storeErr(d.db.Create(req).Error)
}

func (d *Database) GetRequest(id string) (*models.Request, error) {
	var req models.Request
	err := d.db.
		Preload("Host").
		Preload("Members.User").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return &req, nil
}

// ListOpenRequests — доска активных заявок для viewerID: время начала в
// будущем, не свои посты, уже одобренные не показываются (поданные
// остаются видимыми со статусом ожидания).
func (d *Database) ListOpenRequests(viewerID uuid.UUID, now time.Time) ([]models.Request, error) {
	var requests []models.Request
	err := d.db.
		Where("start_time > ?", now).
		Where("host_id <> ?", viewerID).
		Where("id NOT IN (?)", d.db.
			Model(&models.RequestMember{}).
			Select("request_id").
			Where("user_id = ? AND status = ?", viewerID, models.MemberParticipant)).
		Order("start_time ASC").
		Preload("Host").
		Preload("Members").
		Find(&requests).Error

	return requests, storeErr(err)
}

func (d *Database) ListRequestsByHost(hostID uuid.UUID) ([]models.Request, error) {
	var requests []models.Request
	err := d.db.
		Where("host_id = ?", hostID).
		Order("start_time ASC").
		Preload("Members.User").
		Find(&requests).Error

	return requests, storeErr(err)
}

// ListMatchedRequests — заявки, где userID одобрен, плюс свои заявки
// хотя бы с одним участником.
func (d *Database) ListMatchedRequests(userID uuid.UUID) ([]models.Request, error) {
	participantIDs := d.db.
		Model(&models.RequestMember{}).
		Select("request_id").
		Where("status = ?", models.MemberParticipant)

	var requests []models.Request
	err := d.db.
		Where("id IN (?)", d.db.
			Model(&models.RequestMember{}).
			Select("request_id").
			Where("user_id = ? AND status = ?", userID, models.MemberParticipant)).
		Or(d.db.Where("host_id = ?", userID).Where("id IN (?)", participantIDs)).
		Order("start_time ASC").
		Preload("Host").
		Preload("Members.User").
		Find(&requests).Error

	return requests, storeErr(err)
}

// AddApplicant подаёт заявку на участие. Проверки выполняются под
// блокировкой строки заявки; повторная подача закрыта уникальным
// индексом (request_id, user_id).
func (d *Database) AddApplicant(requestID, userID uuid.UUID, now time.Time) (*models.Request, error) {
	var req models.Request
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			First(&req, "id = ?", requestID).Error; err != nil {
			return storeErr(err)
		}

		if req.HostID == userID {
			return apperrors.Validation("cannot apply to your own request")
		}
		if req.Expired(now) {
			return apperrors.Conflict("request has expired")
		}

		member := models.RequestMember{
			RequestID: requestID,
			UserID:    userID,
			Status:    models.MemberApplied,
			AppliedAt: now,
		}
		if err := tx.Create(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("already applied or participating")
			}
			return storeErr(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// RemoveApplicant отзывает заявку. Отсутствие записи не ошибка;
// возвращает, была ли запись на самом деле удалена.
func (d *Database) RemoveApplicant(requestID, userID uuid.UUID) (bool, error) {
	res := d.db.
		Where("request_id = ? AND user_id = ? AND status = ?", requestID, userID, models.MemberApplied).
		Delete(&models.RequestMember{})
	if res.Error != nil {
		return false, storeErr(res.Error)
	}

	return res.RowsAffected > 0, nil
}

// ApproveApplicant атомарно переводит заявителя в участники. Лимит
// участников проверяется в той же транзакции, что и перевод: два
// одновременных одобрения на последнее место не пройдут оба.
func (d *Database) ApproveApplicant(requestID, applicantID, actorID uuid.UUID, now time.Time) (*models.Request, error) {
	var req models.Request
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			First(&req, "id = ?", requestID).Error; err != nil {
			return storeErr(err)
		}

		if req.HostID != actorID {
			return apperrors.Authorization("only the host can approve applicants")
		}

		var member models.RequestMember
		err := tx.First(&member,
			"request_id = ? AND user_id = ? AND status = ?",
			requestID, applicantID, models.MemberApplied).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Conflict("user is not an applicant")
			}
			return storeErr(err)
		}

		if req.MaxParticipants != nil {
			var participants int64
			if err := tx.Model(&models.RequestMember{}).
				Where("request_id = ? AND status = ?", requestID, models.MemberParticipant).
				Count(&participants).Error; err != nil {
				return storeErr(err)
			}
			if participants >= int64(*req.MaxParticipants) {
				return apperrors.Conflict("request is already full")
			}
		}

		err = tx.Model(&member).Updates(map[string]interface{}{
			"status":      models.MemberParticipant,
			"approved_at": now,
		}).Error

		return storeErr(err)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// RejectApplicant удаляет заявителя. Повторное отклонение — конфликт.
func (d *Database) RejectApplicant(requestID, applicantID, actorID uuid.UUID) (*models.Request, error) {
	var req models.Request
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			First(&req, "id = ?", requestID).Error; err != nil {
			return storeErr(err)
		}

		if req.HostID != actorID {
			return apperrors.Authorization("only the host can reject applicants")
		}

		res := tx.
			Where("request_id = ? AND user_id = ? AND status = ?", requestID, applicantID, models.MemberApplied).
			Delete(&models.RequestMember{})
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("user is not an applicant")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// RemoveParticipant убирает участника. Разрешено хосту и самому
// участнику; авторизация проверяется под блокировкой.
func (d *Database) RemoveParticipant(requestID, participantID, actorID uuid.UUID) (*models.Request, error) {
	var req models.Request
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			First(&req, "id = ?", requestID).Error; err != nil {
			return storeErr(err)
		}

		if actorID != req.HostID && actorID != participantID {
			return apperrors.Authorization("not allowed to remove this participant")
		}

		res := tx.
			Where("request_id = ? AND user_id = ? AND status = ?", requestID, participantID, models.MemberParticipant).
			Delete(&models.RequestMember{})
		if res.Error != nil {
			return storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("user is not a participant")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// DeleteRequest удаляет заявку вместе со статусами участников.
// Уведомления, сославшиеся на неё, остаются (история не ретрактится).
func (d *Database) DeleteRequest(id string, actorID uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var req models.Request
		if err := lockForUpdate(tx).
			First(&req, "id = ?", id).Error; err != nil {
			return storeErr(err)
		}

		if req.HostID != actorID {
			return apperrors.Authorization("only the host can delete the request")
		}

		if err := tx.Delete(&models.RequestMember{}, "request_id = ?", id).Error; err != nil {
			return storeErr(err)
		}

		return storeErr(tx.Delete(&req).Error)
	})
}
