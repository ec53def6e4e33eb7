package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

// Service — личные переписки. Комната пары создаётся идемпотентно,
// счётчики непрочитанного живут в Redis с откатом на подсчёт по базе.
type Service struct {
	db    *database.Database
	redis *redis.Client
	hub   *ws.Hub
}

func NewService(db *database.Database, rdb *redis.Client, hub *ws.Hub) *Service {
	return &Service{db: db, redis: rdb, hub: hub}
}

// RoomPreview — строка списка чатов: собеседник, последнее сообщение,
// непрочитанное.
type RoomPreview struct {
	Room        *models.ChatRoom `json:"room"`
	OtherUserID uuid.UUID        `json:"other_user_id"`
	OtherName   string           `json:"other_name"`
	Unread      int64            `json:"unread"`
}

// Resolve возвращает единственную комнату пары, создавая её при первом
// обращении. Порядок аргументов не важен.
func (s *Service) Resolve(userID, otherID uuid.UUID) (*models.ChatRoom, error) {
	if userID == otherID {
		return nil, apperrors.Validation("cannot open a chat with yourself")
	}
	if _, err := s.db.GetUser(otherID.String()); err != nil {
		return nil, err
	}

	return s.db.GetOrCreateChatRoom(userID, otherID)
}

// Send добавляет сообщение в комнату. Отправка разрешена только членам
// пары; собеседнику инкрементируется счётчик непрочитанного.
func (s *Service) Send(ctx context.Context, roomID string, senderID uuid.UUID, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.Validation("message body is empty")
	}

	room, err := s.db.GetChatRoom(roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(senderID) {
		return nil, apperrors.Authorization("not a member of this chat")
	}

	msg := &models.Message{
		RoomID:   room.ID,
		SenderID: senderID,
		Body:     body,
		SentAt:   time.Now(),
	}
	if err := s.db.SaveMessage(msg); err != nil {
		return nil, err
	}

	other := room.OtherMember(senderID)
	s.incrUnread(ctx, room.ID, other)

	s.hub.Publish(ws.Event{
		Type:   ws.TypeChatMessage,
		RoomID: &room.ID,
		UserID: senderID,
	})

	return msg, nil
}

// History — сообщения комнаты по возрастанию времени, с пагинацией
// назад от beforeID.
func (s *Service) History(roomID string, viewerID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	room, err := s.db.GetChatRoom(roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(viewerID) {
		return nil, apperrors.Authorization("not a member of this chat")
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	return s.db.GetRoomMessages(roomID, limit, beforeID)
}

// MarkRead отмечает все чужие сообщения комнаты прочитанными и
// сбрасывает счётчик. Повторный вызов ничего не меняет.
func (s *Service) MarkRead(ctx context.Context, roomID string, viewerID uuid.UUID) error {
	room, err := s.db.GetChatRoom(roomID)
	if err != nil {
		return err
	}
	if !room.HasMember(viewerID) {
		return apperrors.Authorization("not a member of this chat")
	}

	if err := s.db.MarkRoomRead(roomID, viewerID, time.Now()); err != nil {
		return err
	}

	s.resetUnread(ctx, room.ID, viewerID)

	s.hub.Publish(ws.Event{
		Type:   ws.TypeChatRead,
		RoomID: &room.ID,
		UserID: viewerID,
	})

	return nil
}

// Rooms — список переписок пользователя, свежие сверху.
func (s *Service) Rooms(ctx context.Context, userID uuid.UUID) ([]RoomPreview, error) {
	rooms, err := s.db.GetUserChatRooms(userID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uuid.UUID, 0, len(rooms))
	for i := range rooms {
		otherIDs = append(otherIDs, rooms[i].OtherMember(userID))
	}
	users, err := s.db.GetUsersByIDs(otherIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	previews := make([]RoomPreview, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		other := room.OtherMember(userID)
		previews = append(previews, RoomPreview{
			Room:        room,
			OtherUserID: other,
			OtherName:   names[other],
			Unread:      s.unreadCount(ctx, room.ID, userID),
		})
	}

	return previews, nil
}

func unreadKey(roomID, userID uuid.UUID) string {
	return fmt.Sprintf("unread:%s:%s", roomID, userID)
}

func (s *Service) incrUnread(ctx context.Context, roomID, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, unreadKey(roomID, userID)).Err(); err != nil {
		log.Printf("Failed to incr unread counter for %s: %v", userID, err)
	}
}

func (s *Service) resetUnread(ctx context.Context, roomID, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, unreadKey(roomID, userID)).Err(); err != nil {
		log.Printf("Failed to reset unread counter for %s: %v", userID, err)
	}
}

// unreadCount читает счётчик из Redis, при недоступности кеша считает
// по отметкам в базе.
func (s *Service) unreadCount(ctx context.Context, roomID, userID uuid.UUID) int64 {
	if s.redis != nil {
		count, err := s.redis.Get(ctx, unreadKey(roomID, userID)).Int64()
		if err == nil {
			return count
		}
		if err != redis.Nil {
			log.Printf("Failed to read unread counter for %s: %v", userID, err)
		}
	}

	count, err := s.db.CountUnread(roomID.String(), userID)
	if err != nil {
		log.Printf("Failed to count unread messages for %s: %v", userID, err)
		return 0
	}
	return count
}
