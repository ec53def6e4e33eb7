package database

import (
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yuzuhara/tomosanpo/internal/models"
)

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

func (d *Database) Connect() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		if attempt < connectAttempts {
			log.Printf("postgres connect attempt %d failed: %v", attempt, err)
			time.Sleep(connectBackoff * time.Duration(attempt))
		}
	}
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	d.db = db

	return nil
}

// Migrate выполняет автомиграцию всех моделей. Вынесена отдельно,
// чтобы тесты могли поднять схему на sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Request{},
		&models.RequestMember{},
		&models.ChatRoom{},
		&models.Message{},
		&models.MessageRead{},
		&models.Notification{},
	)
}
