package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// lockForUpdate навешивает FOR UPDATE там, где диалект его понимает.
// У sqlite писатели и так сериализуются на уровне файла.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// storeErr переводит ошибки gorm в общую таксономию. Всё, что не
// является бизнес-ошибкой, считается сбоем хранилища.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound("record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict("duplicate record")
	default:
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Transient("storage error", err)
	}
}
