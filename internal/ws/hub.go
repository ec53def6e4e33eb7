package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventType определяет типы событий
type EventType string

const (
	// Системные типы
	TypeConnect    EventType = "connect"
	TypeDisconnect EventType = "disconnect"
	TypePing       EventType = "ping"
	TypePong       EventType = "pong"

	// События заявок
	TypeRequestCreated     EventType = "request_created"
	TypeRequestDeleted     EventType = "request_deleted"
	TypeApplicantApplied   EventType = "applicant_applied"
	TypeApplicantWithdrawn EventType = "applicant_withdrawn"
	TypeApplicantRejected  EventType = "applicant_rejected"
	TypeParticipantJoined  EventType = "participant_joined"
	TypeParticipantRemoved EventType = "participant_removed"

	// События чата
	TypeChatMessage EventType = "chat_message"
	TypeChatRead    EventType = "chat_read"

	// Уведомления
	TypeNotification EventType = "notification"

	// Подписки клиента
	TypeRoomJoin  EventType = "room_join"
	TypeRoomLeave EventType = "room_leave"
)

type Event struct {
	Type      EventType       `json:"type"`
	RequestID *uuid.UUID      `json:"request_id,omitempty"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Recipient *uuid.UUID      `json:"-"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	Rooms  map[uuid.UUID]bool
	Hub    *Hub
	mu     sync.RWMutex
}

// Subscription — серверная подписка на поток событий (для проекций).
// Закрытие через Close; переполненный канал теряет событие, а не
// блокирует публикацию.
type Subscription struct {
	id  uuid.UUID
	C   chan Event
	hub *Hub

	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}

type Hub struct {
	clients map[uuid.UUID]*Client

	// Клиенты по UserID (один пользователь может иметь несколько соединений)
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Клиенты, подписанные на чат-комнаты
	rooms map[uuid.UUID]map[uuid.UUID]*Client

	// Серверные подписки проекций
	subscribers map[uuid.UUID]*Subscription

	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	stopped bool

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Client),
		subscribers: make(map[uuid.UUID]*Subscription),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop останавливает hub. Клиенты убираются из всех карт до закрытия
// их каналов: Publish, пришедший во время остановки, уже никого не
// найдёт и не упрётся в закрытый канал.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopped = true

	clients := h.clients
	h.clients = make(map[uuid.UUID]*Client)
	h.userClients = make(map[uuid.UUID]map[uuid.UUID]*Client)
	h.rooms = make(map[uuid.UUID]map[uuid.UUID]*Client)

	for _, client := range clients {
		close(client.Send)
		client.Conn.Close()
	}
	for id, sub := range h.subscribers {
		close(sub.C)
		delete(h.subscribers, id)
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister отменяет регистрацию клиента. После остановки hub вызов
// не блокируется: цикл Run уже никто не читает.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe создаёт серверную подписку на все публикуемые события.
func (h *Hub) Subscribe(buffer int) *Subscription {
	sub := &Subscription{
		id:  uuid.New(),
		C:   make(chan Event, buffer),
		hub: h,
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	return sub
}

func (h *Hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(sub.C)
	}
}

// Publish рассылает событие после коммита: в чат-комнату при наличии
// RoomID, адресату при наличии Recipient, иначе всем клиентам (доска
// заявок). Серверные подписки получают каждое событие.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event %s: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	for _, sub := range h.subscribers {
		select {
		case sub.C <- event:
		default:
			log.Printf("Subscription %s buffer full, event dropped", sub.id)
		}
	}

	switch {
	case event.RoomID != nil:
		h.sendToRoomUnsafe(*event.RoomID, data)
	case event.Recipient != nil:
		h.sendToUserUnsafe(*event.Recipient, data)
	default:
		for _, client := range h.clients {
			select {
			case client.Send <- data:
			default:
				log.Printf("Client %s send channel full", client.ID)
			}
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Регистрация, проскочившая в момент остановки
	if h.stopped {
		close(client.Send)
		client.Conn.Close()
		return
	}

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	log.Printf("Client registered: %s (User: %s)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		for roomID := range client.Rooms {
			h.removeFromRoomUnsafe(client, roomID)
		}

		if userClients, ok := h.userClients[client.UserID]; ok {
			delete(userClients, client.ID)
			if len(userClients) == 0 {
				delete(h.userClients, client.UserID)
			}
		}

		delete(h.clients, client.ID)
		close(client.Send)

		log.Printf("Client unregistered: %s (User: %s)", client.ID, client.UserID)
	}
}

// JoinRoom подписывает клиента на события чат-комнаты
func (h *Hub) JoinRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[uuid.UUID]*Client)
	}

	h.rooms[roomID][client.ID] = client
	client.mu.Lock()
	client.Rooms[roomID] = true
	client.mu.Unlock()
}

// LeaveRoom отписывает клиента от чат-комнаты
func (h *Hub) LeaveRoom(client *Client, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uuid.UUID) {
	if room, ok := h.rooms[roomID]; ok {
		if _, ok := room[client.ID]; ok {
			delete(room, client.ID)
			client.mu.Lock()
			delete(client.Rooms, roomID)
			client.mu.Unlock()

			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// SendToUser отправляет сообщение на все соединения пользователя
func (h *Hub) SendToUser(userID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.sendToUserUnsafe(userID, message)
}

func (h *Hub) sendToUserUnsafe(userID uuid.UUID, message []byte) {
	if clients, ok := h.userClients[userID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- message:
			default:
				log.Printf("Client %s send channel full", client.ID)
			}
		}
	}
}

func (h *Hub) sendToRoomUnsafe(roomID uuid.UUID, message []byte) {
	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			select {
			case client.Send <- message:
			default:
				log.Printf("Client %s send channel full", client.ID)
			}
		}
	}
}

func (h *Hub) ping() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Event{
		Type:      TypePing,
		Timestamp: time.Now(),
	}

	if data, err := json.Marshal(msg); err == nil {
		for _, client := range h.clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// GetOnlineUsers возвращает список онлайн пользователей
func (h *Hub) GetOnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// GetRoomUsers возвращает пользователей, подписанных на комнату
func (h *Hub) GetRoomUsers(roomID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userMap := make(map[uuid.UUID]bool)
	if room, ok := h.rooms[roomID]; ok {
		for _, client := range room {
			userMap[client.UserID] = true
		}
	}

	users := make([]uuid.UUID, 0, len(userMap))
	for userID := range userMap {
		users = append(users, userID)
	}
	return users
}
