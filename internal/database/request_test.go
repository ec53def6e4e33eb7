package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
	"github.com/yuzuhara/tomosanpo/internal/models"
)

func TestAddApplicant(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	returned, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, host.ID, returned.HostID)

	full, err := d.GetRequest(req.ID.String())
	require.NoError(t, err)
	require.Len(t, full.Applicants(), 1)
	assert.Equal(t, guest.ID, full.Applicants()[0].UserID)
	assert.Empty(t, full.Participants())
}

func TestAddApplicantSelf(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, host.ID, time.Now())
	assert.True(t, apperrors.IsValidation(err))
}

func TestAddApplicantTwice(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)

	_, err = d.AddApplicant(req.ID, guest.ID, time.Now())
	assert.True(t, apperrors.IsConflict(err))
}

func TestAddApplicantExpired(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, req.StartTime.Add(time.Minute))
	assert.True(t, apperrors.IsConflict(err))
}

func TestApproveApplicant(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)

	_, err = d.ApproveApplicant(req.ID, guest.ID, host.ID, time.Now())
	require.NoError(t, err)

	full, err := d.GetRequest(req.ID.String())
	require.NoError(t, err)
	assert.Empty(t, full.Applicants())
	require.Len(t, full.Participants(), 1)
	assert.Equal(t, guest.ID, full.Participants()[0].UserID)
	assert.NotNil(t, full.Participants()[0].ApprovedAt)
}

func TestApproveApplicantNotHost(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	stranger := createTestUser(t, d, "stranger")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)

	_, err = d.ApproveApplicant(req.ID, guest.ID, stranger.ID, time.Now())
	assert.True(t, apperrors.IsAuthorization(err))
}

func TestApproveApplicantNotApplicant(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.ApproveApplicant(req.ID, guest.ID, host.ID, time.Now())
	assert.True(t, apperrors.IsConflict(err))
}

// Лимит мест: на последнее место проходит только одно одобрение,
// второе получает конфликт, а не молча превышает лимит.
func TestApproveApplicantCapacity(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	first := createTestUser(t, d, "first")
	second := createTestUser(t, d, "second")
	req := createTestRequest(t, d, host, intPtr(1))

	_, err := d.AddApplicant(req.ID, first.ID, time.Now())
	require.NoError(t, err)
	_, err = d.AddApplicant(req.ID, second.ID, time.Now())
	require.NoError(t, err)

	_, err = d.ApproveApplicant(req.ID, first.ID, host.ID, time.Now())
	require.NoError(t, err)

	_, err = d.ApproveApplicant(req.ID, second.ID, host.ID, time.Now())
	assert.True(t, apperrors.IsConflict(err))

	full, err := d.GetRequest(req.ID.String())
	require.NoError(t, err)
	assert.Len(t, full.Participants(), 1)
	// Второй заявитель остался заявителем
	assert.Len(t, full.Applicants(), 1)
}

func TestRemoveApplicantAllowsReapply(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)

	removed, err := d.RemoveApplicant(req.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	// Отзыв неподанной заявки не ошибка, но и не удаление
	removed, err = d.RemoveApplicant(req.ID, guest.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)
}

func TestRejectApplicant(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)

	_, err = d.RejectApplicant(req.ID, guest.ID, host.ID)
	require.NoError(t, err)

	// Повторное отклонение — конфликт
	_, err = d.RejectApplicant(req.ID, guest.ID, host.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestRemoveParticipant(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	stranger := createTestUser(t, d, "stranger")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)
	_, err = d.ApproveApplicant(req.ID, guest.ID, host.ID, time.Now())
	require.NoError(t, err)

	// Посторонний не может убрать участника
	_, err = d.RemoveParticipant(req.ID, guest.ID, stranger.ID)
	assert.True(t, apperrors.IsAuthorization(err))

	// Участник может уйти сам
	_, err = d.RemoveParticipant(req.ID, guest.ID, guest.ID)
	require.NoError(t, err)

	full, err := d.GetRequest(req.ID.String())
	require.NoError(t, err)
	assert.Empty(t, full.Participants())
}

func TestListOpenRequests(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	viewer := createTestUser(t, d, "viewer")

	open := createTestRequest(t, d, host, nil)
	mine := createTestRequest(t, d, viewer, nil)

	expired := &models.Request{
		HostID:          host.ID,
		Kind:            models.KindMeal,
		StartTime:       time.Now().Add(-time.Hour),
		DurationMinutes: 30,
		VideoRoomID:     "video-expired",
	}
	require.NoError(t, d.CreateRequest(expired))

	joined := createTestRequest(t, d, host, nil)
	_, err := d.AddApplicant(joined.ID, viewer.ID, time.Now())
	require.NoError(t, err)
	_, err = d.ApproveApplicant(joined.ID, viewer.ID, host.ID, time.Now())
	require.NoError(t, err)

	// Поданный, но не одобренный отклик заявку с доски не убирает
	applied := createTestRequest(t, d, host, nil)
	_, err = d.AddApplicant(applied.ID, viewer.ID, time.Now())
	require.NoError(t, err)

	list, err := d.ListOpenRequests(viewer.ID, time.Now())
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, r := range list {
		ids[r.ID.String()] = true
	}
	assert.True(t, ids[open.ID.String()])
	assert.True(t, ids[applied.ID.String()])
	assert.False(t, ids[mine.ID.String()], "свои заявки не показываются")
	assert.False(t, ids[expired.ID.String()], "истёкшие не показываются")
	assert.False(t, ids[joined.ID.String()], "одобренному участнику заявка не показывается")
}

func TestListMatchedRequests(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")

	matched := createTestRequest(t, d, host, nil)
	_, err := d.AddApplicant(matched.ID, guest.ID, time.Now())
	require.NoError(t, err)
	_, err = d.ApproveApplicant(matched.ID, guest.ID, host.ID, time.Now())
	require.NoError(t, err)

	// Заявка без участников — не встреча
	createTestRequest(t, d, host, nil)

	guestList, err := d.ListMatchedRequests(guest.ID)
	require.NoError(t, err)
	require.Len(t, guestList, 1)
	assert.Equal(t, matched.ID, guestList[0].ID)

	hostList, err := d.ListMatchedRequests(host.ID)
	require.NoError(t, err)
	require.Len(t, hostList, 1)
	assert.Equal(t, matched.ID, hostList[0].ID)
}

func TestDeleteRequest(t *testing.T) {
	d := newTestDB(t)
	host := createTestUser(t, d, "host")
	guest := createTestUser(t, d, "guest")
	req := createTestRequest(t, d, host, nil)

	_, err := d.AddApplicant(req.ID, guest.ID, time.Now())
	require.NoError(t, err)

	err = d.DeleteRequest(req.ID.String(), guest.ID)
	assert.True(t, apperrors.IsAuthorization(err))

	require.NoError(t, d.DeleteRequest(req.ID.String(), host.ID))

	_, err = d.GetRequest(req.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
}
