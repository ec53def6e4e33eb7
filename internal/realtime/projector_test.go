package realtime

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

const waitFor = 2 * time.Second

func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return database.NewDatabase(db)
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

func newRequest(t *testing.T, d *database.Database, host *models.User) *models.Request {
	t.Helper()

	req := &models.Request{
		HostID:          host.ID,
		Kind:            models.KindWalk,
		StartTime:       time.Now().Add(time.Hour),
		DurationMinutes: 30,
		VideoRoomID:     uuid.NewString(),
	}
	require.NoError(t, d.CreateRequest(req))
	return req
}

func feedHas(f *RequestFeed, id uuid.UUID) func() bool {
	return func() bool {
		for _, r := range f.Snapshot() {
			if r.ID == id {
				return true
			}
		}
		return false
	}
}

func feedMisses(f *RequestFeed, id uuid.UUID) func() bool {
	return func() bool { return !feedHas(f, id)() }
}

func TestRequestFeedFollowsEvents(t *testing.T) {
	d := newTestDB(t)
	hub := ws.NewHub()
	host := newUser(t, d, "host")
	viewer := newUser(t, d, "viewer")

	existing := newRequest(t, d, host)

	feed, err := NewRequestFeed(d, hub, viewer.ID)
	require.NoError(t, err)
	defer feed.Close()

	// Снимок содержит уже открытую заявку
	assert.True(t, feedHas(feed, existing.ID)())

	created := newRequest(t, d, host)
	hub.Publish(ws.Event{Type: ws.TypeRequestCreated, RequestID: &created.ID, UserID: host.ID})
	assert.Eventually(t, feedHas(feed, created.ID), waitFor, 10*time.Millisecond)

	hub.Publish(ws.Event{Type: ws.TypeRequestDeleted, RequestID: &created.ID, UserID: host.ID})
	assert.Eventually(t, feedMisses(feed, created.ID), waitFor, 10*time.Millisecond)
}

// Свои заявки на собственной доске не появляются.
func TestRequestFeedIgnoresOwnRequests(t *testing.T) {
	d := newTestDB(t)
	hub := ws.NewHub()
	viewer := newUser(t, d, "viewer")

	feed, err := NewRequestFeed(d, hub, viewer.ID)
	require.NoError(t, err)
	defer feed.Close()

	own := newRequest(t, d, viewer)
	hub.Publish(ws.Event{Type: ws.TypeRequestCreated, RequestID: &own.ID, UserID: viewer.ID})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, feed.Snapshot())
}

// Одобрение убирает заявку с доски одобренного зрителя.
func TestRequestFeedDropsJoined(t *testing.T) {
	d := newTestDB(t)
	hub := ws.NewHub()
	host := newUser(t, d, "host")
	viewer := newUser(t, d, "viewer")

	req := newRequest(t, d, host)

	feed, err := NewRequestFeed(d, hub, viewer.ID)
	require.NoError(t, err)
	defer feed.Close()
	require.True(t, feedHas(feed, req.ID)())

	_, err = d.AddApplicant(req.ID, viewer.ID, time.Now())
	require.NoError(t, err)
	_, err = d.ApproveApplicant(req.ID, viewer.ID, host.ID, time.Now())
	require.NoError(t, err)

	hub.Publish(ws.Event{Type: ws.TypeParticipantJoined, RequestID: &req.ID, UserID: viewer.ID})
	assert.Eventually(t, feedMisses(feed, req.ID), waitFor, 10*time.Millisecond)

	// После исключения заявка возвращается на доску
	_, err = d.RemoveParticipant(req.ID, viewer.ID, host.ID)
	require.NoError(t, err)

	hub.Publish(ws.Event{Type: ws.TypeParticipantRemoved, RequestID: &req.ID, UserID: viewer.ID})
	assert.Eventually(t, feedHas(feed, req.ID), waitFor, 10*time.Millisecond)
}

func TestRequestFeedClose(t *testing.T) {
	d := newTestDB(t)
	hub := ws.NewHub()
	host := newUser(t, d, "host")
	viewer := newUser(t, d, "viewer")

	feed, err := NewRequestFeed(d, hub, viewer.ID)
	require.NoError(t, err)
	feed.Close()

	// События после закрытия отбрасываются, снимок не меняется
	late := newRequest(t, d, host)
	hub.Publish(ws.Event{Type: ws.TypeRequestCreated, RequestID: &late.ID, UserID: host.ID})
	assert.Empty(t, feed.Snapshot())

	// Повторное закрытие безопасно
	feed.Close()
}

func sendMessage(t *testing.T, d *database.Database, roomID, senderID uuid.UUID, body string) {
	t.Helper()

	require.NoError(t, d.SaveMessage(&models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Body:     body,
		SentAt:   time.Now(),
	}))
}

func TestUnreadBadge(t *testing.T) {
	d := newTestDB(t)
	hub := ws.NewHub()
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")
	carol := newUser(t, d, "carol")

	room, err := d.GetOrCreateChatRoom(alice.ID, bob.ID)
	require.NoError(t, err)
	sendMessage(t, d, room.ID, bob.ID, "seed")

	badge, err := NewUnreadBadge(d, hub, alice.ID)
	require.NoError(t, err)
	defer badge.Close()

	// Снимок учитывает накопленное до подписки
	assert.EqualValues(t, 1, badge.Count())

	sendMessage(t, d, room.ID, bob.ID, "more")
	hub.Publish(ws.Event{Type: ws.TypeChatMessage, RoomID: &room.ID, UserID: bob.ID})
	assert.Eventually(t, func() bool { return badge.Count() == 2 }, waitFor, 10*time.Millisecond)

	// Чужая комната счётчик не трогает
	other, err := d.GetOrCreateChatRoom(bob.ID, carol.ID)
	require.NoError(t, err)
	hub.Publish(ws.Event{Type: ws.TypeChatMessage, RoomID: &other.ID, UserID: carol.ID})
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, badge.Count())

	// Отметка прочитанного обнуляет через пересчёт
	require.NoError(t, d.MarkRoomRead(room.ID.String(), alice.ID, time.Now()))
	hub.Publish(ws.Event{Type: ws.TypeChatRead, RoomID: &room.ID, UserID: alice.ID})
	assert.Eventually(t, func() bool { return badge.Count() == 0 }, waitFor, 10*time.Millisecond)
}

func TestNameCache(t *testing.T) {
	d := newTestDB(t)
	alice := newUser(t, d, "alice")
	bob := newUser(t, d, "bob")

	cache := NewNameCache(d)
	require.NoError(t, cache.Load([]uuid.UUID{alice.ID, bob.ID, alice.ID}))

	assert.Equal(t, "alice", cache.Name(alice.ID))
	assert.Equal(t, "bob", cache.Name(bob.ID))
	assert.Equal(t, "", cache.Name(uuid.New()))
}
