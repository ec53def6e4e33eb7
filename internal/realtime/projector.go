package realtime

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

const subscriptionBuffer = 64

// RequestFeed — живая проекция доски заявок для одного зрителя.
// Стартует со снимка из базы и дальше обновляется событиями hub:
// новые заявки добавляются, удалённые и истёкшие выпадают, одобрение
// зрителя убирает заявку с его доски.
type RequestFeed struct {
	viewerID uuid.UUID
	db       *database.Database
	sub      *ws.Subscription

	mu       sync.RWMutex
	requests map[uuid.UUID]models.Request
	closed   bool

	done chan struct{}
}

func NewRequestFeed(db *database.Database, hub *ws.Hub, viewerID uuid.UUID) (*RequestFeed, error) {
	f := &RequestFeed{
		viewerID: viewerID,
		db:       db,
		sub:      hub.Subscribe(subscriptionBuffer),
		requests: make(map[uuid.UUID]models.Request),
		done:     make(chan struct{}),
	}

	// Подписка открыта до снимка: событие между снимком и стартом цикла
	// не теряется.
	snapshot, err := db.ListOpenRequests(viewerID, time.Now())
	if err != nil {
		f.sub.Close()
		return nil, err
	}
	for _, req := range snapshot {
		f.requests[req.ID] = req
	}

	go f.run()
	return f, nil
}

func (f *RequestFeed) run() {
	defer close(f.done)

	for event := range f.sub.C {
		switch event.Type {
		case ws.TypeRequestCreated:
			f.applyCreated(event)
		case ws.TypeRequestDeleted:
			f.remove(event.RequestID)
		case ws.TypeParticipantJoined:
			// Одобренный зритель больше не видит заявку на доске
			if event.UserID == f.viewerID {
				f.remove(event.RequestID)
			}
		case ws.TypeParticipantRemoved, ws.TypeApplicantRejected:
			if event.UserID == f.viewerID {
				f.refresh(event.RequestID)
			}
		}
	}
}

func (f *RequestFeed) applyCreated(event ws.Event) {
	if event.RequestID == nil || event.UserID == f.viewerID {
		return
	}
	f.refresh(event.RequestID)
}

// refresh перечитывает заявку и применяет фильтры доски.
func (f *RequestFeed) refresh(requestID *uuid.UUID) {
	if requestID == nil {
		return
	}

	req, err := f.db.GetRequest(requestID.String())
	if err != nil {
		log.Printf("Feed refresh failed for request %s: %v", requestID, err)
		return
	}
	if req.HostID == f.viewerID || req.Expired(time.Now()) {
		return
	}
	for _, m := range req.Participants() {
		if m.UserID == f.viewerID {
			return
		}
	}

	f.mu.Lock()
	if !f.closed {
		f.requests[req.ID] = *req
	}
	f.mu.Unlock()
}

func (f *RequestFeed) remove(requestID *uuid.UUID) {
	if requestID == nil {
		return
	}
	f.mu.Lock()
	delete(f.requests, *requestID)
	f.mu.Unlock()
}

// Snapshot — текущее состояние доски, ближайшие по времени первыми.
// Истёкшие с момента снимка заявки отфильтровываются на чтении.
func (f *RequestFeed) Snapshot() []models.Request {
	now := time.Now()

	f.mu.RLock()
	out := make([]models.Request, 0, len(f.requests))
	for _, req := range f.requests {
		if !req.Expired(now) {
			out = append(out, req)
		}
	}
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Close останавливает проекцию. События, пришедшие после закрытия,
// отбрасываются.
func (f *RequestFeed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.sub.Close()
	<-f.done
}

// UnreadBadge — живой счётчик непрочитанных сообщений пользователя по
// всем его перепискам. Чужое сообщение в его комнате инкрементирует,
// собственная отметка прочитанного вызывает пересчёт по базе.
type UnreadBadge struct {
	userID uuid.UUID
	db     *database.Database
	sub    *ws.Subscription

	mu     sync.RWMutex
	count  int64
	closed bool

	done chan struct{}
}

func NewUnreadBadge(db *database.Database, hub *ws.Hub, userID uuid.UUID) (*UnreadBadge, error) {
	b := &UnreadBadge{
		userID: userID,
		db:     db,
		sub:    hub.Subscribe(subscriptionBuffer),
		done:   make(chan struct{}),
	}

	count, err := b.totalUnread()
	if err != nil {
		b.sub.Close()
		return nil, err
	}
	b.count = count

	go b.run()
	return b, nil
}

func (b *UnreadBadge) run() {
	defer close(b.done)

	for event := range b.sub.C {
		switch event.Type {
		case ws.TypeChatMessage:
			if event.RoomID == nil || event.UserID == b.userID {
				continue
			}
			room, err := b.db.GetChatRoom(event.RoomID.String())
			if err != nil || !room.HasMember(b.userID) {
				continue
			}
			b.mu.Lock()
			if !b.closed {
				b.count++
			}
			b.mu.Unlock()

		case ws.TypeChatRead:
			// Отметка по одной комнате меняет общий счётчик на её долю,
			// проще пересчитать целиком
			if event.UserID != b.userID {
				continue
			}
			if err := b.Refresh(); err != nil {
				log.Printf("Badge refresh failed for %s: %v", b.userID, err)
			}
		}
	}
}

func (b *UnreadBadge) Count() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Refresh сверяет счётчик с базой. Результат, пришедший после Close,
// отбрасывается.
func (b *UnreadBadge) Refresh() error {
	count, err := b.totalUnread()
	if err != nil {
		return err
	}

	b.mu.Lock()
	if !b.closed {
		b.count = count
	}
	b.mu.Unlock()
	return nil
}

func (b *UnreadBadge) totalUnread() (int64, error) {
	rooms, err := b.db.GetUserChatRooms(b.userID)
	if err != nil {
		return 0, err
	}

	var total int64
	for i := range rooms {
		count, err := b.db.CountUnread(rooms[i].ID.String(), b.userID)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

func (b *UnreadBadge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.sub.Close()
	<-b.done
}

// NameCache — кеш отображаемых имён в пределах одной сборки выдачи.
// Повторные id не ходят в базу.
type NameCache struct {
	db    *database.Database
	names map[uuid.UUID]string
}

func NewNameCache(db *database.Database) *NameCache {
	return &NameCache{
		db:    db,
		names: make(map[uuid.UUID]string),
	}
}

// Load пакетно резолвит недостающие имена.
func (c *NameCache) Load(ids []uuid.UUID) error {
	missing := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.names[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	users, err := c.db.GetUsersByIDs(missing)
	if err != nil {
		return err
	}
	for _, u := range users {
		c.names[u.ID] = u.Username
	}
	return nil
}

func (c *NameCache) Name(id uuid.UUID) string {
	if name, ok := c.names[id]; ok {
		return name
	}

	user, err := c.db.GetUser(id.String())
	if err != nil {
		return ""
	}
	c.names[id] = user.Username
	return user.Username
}
