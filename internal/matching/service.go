package matching

import (
	"time"

	"github.com/google/uuid"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/models"
	"github.com/yuzuhara/tomosanpo/internal/notifications"
	"github.com/yuzuhara/tomosanpo/internal/ws"
)

// Service — жизненный цикл заявок: создание, отклики, одобрения,
// исключения. Атомарность переходов обеспечивает слой хранилища,
// сервис валидирует вход и публикует события после успеха.
type Service struct {
	db       *database.Database
	notifier *notifications.Dispatcher
	hub      *ws.Hub
}

func NewService(db *database.Database, notifier *notifications.Dispatcher, hub *ws.Hub) *Service {
	return &Service{db: db, notifier: notifier, hub: hub}
}

type CreateInput struct {
	Kind            string
	Content         string
	Location        string
	StartTime       time.Time
	DurationMinutes int
	MaxParticipants *int
}

// Create публикует новую заявку. Комната видеозвонка выдаётся сразу,
// чтобы участники получали одну и ту же ссылку.
func (s *Service) Create(hostID uuid.UUID, in CreateInput) (*models.Request, error) {
	if in.Kind != models.KindMeal && in.Kind != models.KindWalk {
		return nil, apperrors.Validation("kind must be meal or walk")
	}
	if !in.StartTime.After(time.Now()) {
		return nil, apperrors.Validation("start time must be in the future")
	}
	if in.DurationMinutes <= 0 {
		return nil, apperrors.Validation("duration must be positive")
	}
	if in.MaxParticipants != nil && *in.MaxParticipants <= 0 {
		return nil, apperrors.Validation("max participants must be positive")
	}

	req := &models.Request{
		HostID:          hostID,
		Kind:            in.Kind,
		Content:         in.Content,
		Location:        in.Location,
		StartTime:       in.StartTime,
		DurationMinutes: in.DurationMinutes,
		MaxParticipants: in.MaxParticipants,
		VideoRoomID:     uuid.NewString(),
	}

	if err := s.db.CreateRequest(req); err != nil {
		return nil, err
	}

	s.hub.Publish(ws.Event{
		Type:      ws.TypeRequestCreated,
		RequestID: &req.ID,
		UserID:    hostID,
	})

	return req, nil
}

func (s *Service) Get(id string) (*models.Request, error) {
	return s.db.GetRequest(id)
}

// ListOpen — доска для viewerID: будущие чужие заявки, где он ещё не
// участник.
func (s *Service) ListOpen(viewerID uuid.UUID) ([]models.Request, error) {
	return s.db.ListOpenRequests(viewerID, time.Now())
}

func (s *Service) ListMine(hostID uuid.UUID) ([]models.Request, error) {
	return s.db.ListRequestsByHost(hostID)
}

func (s *Service) ListMatched(userID uuid.UUID) ([]models.Request, error) {
	return s.db.ListMatchedRequests(userID)
}

// Apply подаёт отклик. Повторный отклик и отклик на свою заявку
// отсекаются в хранилище под блокировкой.
func (s *Service) Apply(requestID, userID uuid.UUID) error {
	req, err := s.db.AddApplicant(requestID, userID, time.Now())
	if err != nil {
		return err
	}

	s.notifier.Emit(req.HostID, userID, models.NotifApplied, requestID)
	s.hub.Publish(ws.Event{
		Type:      ws.TypeApplicantApplied,
		RequestID: &requestID,
		UserID:    userID,
	})

	return nil
}

// Withdraw отзывает отклик. Уведомление хосту не шлётся; событие
// публикуется только если отклик действительно существовал.
func (s *Service) Withdraw(requestID, userID uuid.UUID) error {
	removed, err := s.db.RemoveApplicant(requestID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.hub.Publish(ws.Event{
		Type:      ws.TypeApplicantWithdrawn,
		RequestID: &requestID,
		UserID:    userID,
	})

	return nil
}

// Approve переводит заявителя в участники. Лимит мест проверяется
// атомарно: два одобрения на последнее место не пройдут оба.
func (s *Service) Approve(requestID, applicantID, actorID uuid.UUID) error {
	_, err := s.db.ApproveApplicant(requestID, applicantID, actorID, time.Now())
	if err != nil {
		return err
	}

	s.notifier.Emit(applicantID, actorID, models.NotifApproved, requestID)
	s.hub.Publish(ws.Event{
		Type:      ws.TypeParticipantJoined,
		RequestID: &requestID,
		UserID:    applicantID,
	})

	return nil
}

func (s *Service) Reject(requestID, applicantID, actorID uuid.UUID) error {
	_, err := s.db.RejectApplicant(requestID, applicantID, actorID)
	if err != nil {
		return err
	}

	s.notifier.Emit(applicantID, actorID, models.NotifRejected, requestID)
	s.hub.Publish(ws.Event{
		Type:      ws.TypeApplicantRejected,
		RequestID: &requestID,
		UserID:    applicantID,
	})

	return nil
}

// RemoveParticipant убирает участника; разрешено хосту и самому
// участнику. Уведомляется противоположная сторона.
func (s *Service) RemoveParticipant(requestID, participantID, actorID uuid.UUID) error {
	req, err := s.db.RemoveParticipant(requestID, participantID, actorID)
	if err != nil {
		return err
	}

	if actorID == req.HostID {
		s.notifier.Emit(participantID, actorID, models.NotifRemoved, requestID)
	} else {
		s.notifier.Emit(req.HostID, actorID, models.NotifRemoved, requestID)
	}

	s.hub.Publish(ws.Event{
		Type:      ws.TypeParticipantRemoved,
		RequestID: &requestID,
		UserID:    participantID,
	})

	return nil
}

// Delete удаляет заявку хоста. Уже разосланные уведомления остаются.
func (s *Service) Delete(requestID uuid.UUID, actorID uuid.UUID) error {
	if err := s.db.DeleteRequest(requestID.String(), actorID); err != nil {
		return err
	}

	s.hub.Publish(ws.Event{
		Type:      ws.TypeRequestDeleted,
		RequestID: &requestID,
		UserID:    actorID,
	})

	return nil
}
