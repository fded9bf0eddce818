package services

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/cache"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tenderFixture struct {
	repo    *fakeTenderRepo
	fanout  *notification.Fanout
	notifs  *fakeNotificationRepo
	cache   *cache.MemoryCache
	service *TenderService

	now   time.Time
	actor models.Actor
}

func newTenderFixture() *tenderFixture {
	repo := newFakeTenderRepo()
	fanout, notifs := newTestFanout()
	memCache := cache.NewMemoryCache()

	f := &tenderFixture{
		repo:   repo,
		fanout: fanout,
		notifs: notifs,
		cache:  memCache,
		now:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		actor:  models.Actor{UserID: uuid.New().String(), CompanyID: uuid.New().String()},
	}
	f.service = NewTenderService(repo, fanout, memCache)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *tenderFixture) createTender(t *testing.T) *models.Tender {
	t.Helper()
	tender, err := f.service.CreateTender(context.Background(), f.actor, models.TenderRequest{
		Title:              "Server hardware",
		Description:        "Rack servers for the data center",
		Category:           models.Delivery,
		Budget:             decimal.NewFromInt(250000),
		SubmissionDeadline: f.now.Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return tender
}

func TestCreateTender(t *testing.T) {
	f := newTenderFixture()

	tender := f.createTender(t)
	assert.Equal(t, models.DraftTender, tender.Status)
	assert.Equal(t, 1, tender.Version)
	assert.Equal(t, f.actor.CompanyID, tender.AuthorityID)
}

func TestCreateTenderValidation(t *testing.T) {
	f := newTenderFixture()
	ctx := context.Background()

	_, err := f.service.CreateTender(ctx, f.actor, models.TenderRequest{
		Description:        "no title",
		Category:           models.Delivery,
		SubmissionDeadline: f.now.Add(time.Hour),
	})
	requireErrorCode(t, err, models.CodeValidation)

	_, err = f.service.CreateTender(ctx, f.actor, models.TenderRequest{
		Title:              "bad category",
		Description:        "x",
		Category:           "Consulting",
		SubmissionDeadline: f.now.Add(time.Hour),
	})
	requireErrorCode(t, err, models.CodeValidation)

	_, err = f.service.CreateTender(ctx, f.actor, models.TenderRequest{
		Title:              "past deadline",
		Description:        "x",
		Category:           models.Delivery,
		SubmissionDeadline: f.now.Add(-time.Hour),
	})
	requireErrorCode(t, err, models.CodeValidation)

	noCompany := models.Actor{UserID: uuid.New().String()}
	_, err = f.service.CreateTender(ctx, noCompany, models.TenderRequest{
		Title:              "orphan",
		Description:        "x",
		Category:           models.Delivery,
		SubmissionDeadline: f.now.Add(time.Hour),
	})
	requireErrorCode(t, err, models.CodeForbidden)
}

func TestTenderStatusFlow(t *testing.T) {
	f := newTenderFixture()
	ctx := context.Background()
	tender := f.createTender(t)

	for _, status := range []models.TenderStatus{models.PublishedTender, models.OpenTender, models.EvaluationTender} {
		updated, err := f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	// Версия растёт на каждом переходе.
	current, err := f.service.FetchTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Version)
}

func TestUpdateTenderStatusRejectsAwardShortcut(t *testing.T) {
	f := newTenderFixture()
	tender := f.createTender(t)

	_, err := f.service.UpdateTenderStatus(context.Background(), f.actor, tender.ID, models.TenderStatusUpdate{
		Status: models.AwardedTender,
	})
	requireErrorCode(t, err, models.CodeInvalidTransition)
}

func TestCancelTenderRequiresReason(t *testing.T) {
	f := newTenderFixture()
	ctx := context.Background()
	tender := f.createTender(t)

	_, err := f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{
		Status: models.CancelledTender,
	})
	requireErrorCode(t, err, models.CodeValidation)

	cancelled, err := f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{
		Status: models.CancelledTender,
		Reason: "project descoped",
	})
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "project descoped", *cancelled.CancellationReason)

	// Терминальный статус, дальнейшие переходы запрещены.
	_, err = f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{
		Status: models.PublishedTender,
	})
	requireErrorCode(t, err, models.CodeInvalidTransition)
}

func TestEditTenderOnlyWhileEditable(t *testing.T) {
	f := newTenderFixture()
	ctx := context.Background()
	tender := f.createTender(t)

	title := "Server hardware, phase 2"
	updated, err := f.service.EditTender(ctx, f.actor, tender.ID, models.TenderUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 2, updated.Version)

	for _, status := range []models.TenderStatus{models.PublishedTender, models.OpenTender} {
		_, err = f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{Status: status})
		require.NoError(t, err)
	}

	_, err = f.service.EditTender(ctx, f.actor, tender.ID, models.TenderUpdate{Title: &title})
	requireErrorCode(t, err, models.CodeTenderNotEditable)
}

func TestEditTenderConcurrentModification(t *testing.T) {
	f := newTenderFixture()
	f.repo.updateErr = repository.ErrVersionConflict
	tender := f.createTender(t)

	title := "renamed"
	_, err := f.service.EditTender(context.Background(), f.actor, tender.ID, models.TenderUpdate{Title: &title})
	requireErrorCode(t, err, models.CodeConcurrentModification)
}

func TestFetchTenderUsesVersionedCache(t *testing.T) {
	f := newTenderFixture()
	ctx := context.Background()
	tender := f.createTender(t)

	first, err := f.service.FetchTender(ctx, tender.ID)
	require.NoError(t, err)

	_, ok := f.cache.Get(cacheTenderType, tender.ID, first.Version)
	require.True(t, ok)

	// Повторное чтение обслуживается кешем без похода в хранилище.
	reads := f.repo.getCalls
	cached, err := f.service.FetchTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version, cached.Version)
	assert.Equal(t, reads, f.repo.getCalls)

	// Переход инвалидирует кеш, следующее чтение видит новую версию.
	_, err = f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{Status: models.PublishedTender})
	require.NoError(t, err)

	_, ok = f.cache.Get(cacheTenderType, tender.ID, first.Version)
	assert.False(t, ok)

	fresh, err := f.service.FetchTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PublishedTender, fresh.Status)
	assert.Equal(t, first.Version+1, fresh.Version)
}

func TestCloseExpired(t *testing.T) {
	f := newTenderFixture()
	ctx := context.Background()
	tender := f.createTender(t)

	for _, status := range []models.TenderStatus{models.PublishedTender, models.OpenTender} {
		_, err := f.service.UpdateTenderStatus(ctx, f.actor, tender.ID, models.TenderStatusUpdate{Status: status})
		require.NoError(t, err)
	}

	current, err := f.repo.GetByID(ctx, tender.ID)
	require.NoError(t, err)

	closed, err := f.service.CloseExpired(ctx, *current)
	require.NoError(t, err)
	assert.Equal(t, models.ClosedTender, closed.Status)

	// Повторное закрытие того же снимка не проходит по версии.
	_, err = f.service.CloseExpired(ctx, *current)
	requireErrorCode(t, err, models.CodeConcurrentModification)
}

func TestPublishEmitsNotification(t *testing.T) {
	f := newTenderFixture()
	tender := f.createTender(t)

	_, err := f.service.UpdateTenderStatus(context.Background(), f.actor, tender.ID, models.TenderStatusUpdate{
		Status: models.PublishedTender,
	})
	require.NoError(t, err)

	f.fanout.Stop()
	assert.Equal(t, 1, f.notifs.countByType(models.TenderPublishedEvent))
}
