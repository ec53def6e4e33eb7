package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

// Сервис тестируется без Redis: счётчики падают на подсчёт по базе.
func newTestService(t *testing.T) (*Service, *database.Database, *ws.Hub) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	d := database.NewDatabase(db)
	hub := ws.NewHub()

	return NewService(d, nil, hub), d, hub
}

func newUser(t *testing.T, d *database.Database, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, d.SaveUser(user))
	return user
}

func TestResolveIdempotent(t *testing.T) {
	svc, d, _ := newTestService(t)
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")

	room, err := svc.Resolve(alice.ID, bob.ID)
	require.NoError(t, err)

	reversed, err := svc.Resolve(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, reversed.ID)
}

func TestResolveSelf(t *testing.T) {
	svc, d, _ := newTestService(t)
	alice := newUser(t, d, "alice")

	_, err := svc.Resolve(alice.ID, alice.ID)
	assert.True(t, apperrors.IsValidation(err))
}

func TestResolveUnknownUser(t *testing.T) {
	svc, d, _ := newTestService(t)
	alice := newUser(t, d, "alice")

	_, err := svc.Resolve(alice.ID, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendAndHistory(t *testing.T) {
	svc, d, hub := newTestService(t)
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")

	room, err := svc.Resolve(alice.ID, bob.ID)
	require.NoError(t, err)

	sub := hub.Subscribe(8)
	defer sub.Close()

	ctx := context.Background()
	_, err = svc.Send(ctx, room.ID.String(), alice.ID, "привет!")
	require.NoError(t, err)
	_, err = svc.Send(ctx, room.ID.String(), bob.ID, "привет-привет")
	require.NoError(t, err)

	event := <-sub.C
	assert.Equal(t, ws.TypeChatMessage, event.Type)
	require.NotNil(t, event.RoomID)
	assert.Equal(t, room.ID, *event.RoomID)

	messages, err := svc.History(room.ID.String(), alice.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "привет!", messages[0].Body)
	assert.Equal(t, "привет-привет", messages[1].Body)
}

func TestSendRejectsOutsider(t *testing.T) {
	svc, d, _ := newTestService(t)
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")
	carol := newUser(t, d, "carol")

	room, err := svc.Resolve(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), room.ID.String(), carol.ID, "пустите")
	assert.True(t, apperrors.IsAuthorization(err))

	_, err = svc.History(room.ID.String(), carol.ID, 50, nil)
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestSendEmptyBody(t *testing.T) {
	svc, d, _ := newTestService(t)
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")

	room, err := svc.Resolve(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), room.ID.String(), alice.ID, "   ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestMarkReadAndRooms(t *testing.T) {
	svc, d, _ := newTestService(t)
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")

	room, err := svc.Resolve(alice.ID, bob.ID)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Send(ctx, room.ID.String(), alice.ID, "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, room.ID.String(), alice.ID, "two")
	require.NoError(t, err)

	previews, err := svc.Rooms(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, alice.ID, previews[0].OtherUserID)
	assert.Equal(t, "alice", previews[0].OtherName)
	assert.Equal(t, "two", previews[0].Room.LastMessage)
	assert.EqualValues(t, 2, previews[0].Unread)

	require.NoError(t, svc.MarkRead(ctx, room.ID.String(), bob.ID))

	previews, err = svc.Rooms(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.EqualValues(t, 0, previews[0].Unread)

	// Повторная отметка безвредна
	require.NoError(t, svc.MarkRead(ctx, room.ID.String(), bob.ID))
}
