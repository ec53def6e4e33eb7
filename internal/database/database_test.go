package database

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yuzuhara/tomosanpo/internal/models"
)

// newTestDB поднимает изолированную in-memory базу со всей схемой.
func newTestDB(t *testing.T) *Database {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	return NewDatabase(db)
}

func createTestUser(t *testing.T, d *Database, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, d.SaveUser(user))
	return user
}

func createTestRequest(t *testing.T, d *Database, host *models.User, maxParticipants *int) *models.Request {
	t.Helper()

	req := &models.Request{
		HostID:          host.ID,
		Kind:            models.KindWalk,
		Content:         "прогулка в парке",
		Location:        "Yoyogi Park",
		StartTime:       time.Now().Add(2 * time.Hour),
		DurationMinutes: 60,
		MaxParticipants: maxParticipants,
		VideoRoomID:     "video-" + host.Username,
	}
	require.NoError(t, d.CreateRequest(req))
	return req
}

func intPtr(v int) *int { return &v }
