package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/cache"
	"github.com/senyabanana/procurement-service/internal/lifecycle"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
)

const (
	cacheTenderType = "tender"
	cacheBidType    = "bid"

	// Верхняя граница выборки предложений одного тендера.
	allBidsLimit = 1000
)

var allowedCategories = map[models.TenderCategory]bool{
	models.Construction: true,
	models.Delivery:     true,
	models.Manufacture:  true,
}

// TenderService управляет жизненным циклом тендера. Все мутации идут через
// явные операции с проверкой переходов, прямого присваивания полей нет.
type TenderService struct {
	repo   repository.TenderRepository
	fanout *notification.Fanout
	cache  cache.Cache
	now    func() time.Time
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, fanout *notification.Fanout, c cache.Cache) *TenderService {
	return &TenderService{
		repo:   repo,
		fanout: fanout,
		cache:  c,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateTender создает новый тендер в статусе draft.
func (s *TenderService) CreateTender(ctx context.Context, actor models.Actor, req models.TenderRequest) (*models.Tender, error) {
	if req.Title == "" || req.Description == "" {
		return nil, models.ValidationError("missing required fields: title or description")
	}
	if actor.CompanyID == "" {
		return nil, models.Forbidden("caller must belong to an authority company")
	}
	if !allowedCategories[req.Category] {
		return nil, models.ValidationError(fmt.Sprintf("invalid category: %s", req.Category))
	}
	if !req.Budget.IsPositive() {
		return nil, models.ValidationError("budget must be positive")
	}
	if req.SubmissionDeadline.IsZero() || !req.SubmissionDeadline.After(s.now()) {
		return nil, models.ValidationError("submission deadline must be in the future")
	}

	now := s.now()
	tender := &models.Tender{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Budget:             req.Budget,
		Requirements:       req.Requirements,
		SubmissionDeadline: req.SubmissionDeadline.UTC(),
		Status:             models.DraftTender,
		AuthorityID:        actor.CompanyID,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, tender); err != nil {
		return nil, models.InternalError("failed to create tender")
	}
	return tender, nil
}

// FetchTender возвращает тендер, используя версионированный кеш чтений.
// Попадание в кеш обходится без запроса к базе: каждая мутация тендера
// инвалидирует его записи, поэтому последняя закешированная версия актуальна.
func (s *TenderService) FetchTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	if cached, ok := s.cache.GetLatest(cacheTenderType, tenderID); ok {
		var fromCache models.Tender
		if err := json.Unmarshal(cached, &fromCache); err == nil {
			return &fromCache, nil
		}
	}

	tender, err := s.repo.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to fetch tender")
	}

	if encoded, err := json.Marshal(tender); err == nil {
		s.cache.Set(cacheTenderType, tender.ID, tender.Version, encoded)
	}
	return tender, nil
}

// FetchTenders возвращает список тендеров с фильтром по категориям.
func (s *TenderService) FetchTenders(ctx context.Context, limit, offset int, categories []string) ([]models.Tender, error) {
	for _, category := range categories {
		if !allowedCategories[models.TenderCategory(category)] {
			return nil, models.ValidationError(fmt.Sprintf("unsupported category: %s", category))
		}
	}
	tenders, err := s.repo.List(ctx, limit, offset, categories)
	if err != nil {
		return nil, models.InternalError("failed to fetch tenders")
	}
	return tenders, nil
}

// FetchAuthorityTenders возвращает тендеры организации вызывающего.
func (s *TenderService) FetchAuthorityTenders(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Tender, error) {
	if actor.CompanyID == "" {
		return nil, models.Forbidden("caller must belong to an authority company")
	}
	tenders, err := s.repo.ListByAuthority(ctx, actor.CompanyID, limit, offset)
	if err != nil {
		return nil, models.InternalError("failed to fetch tenders")
	}
	return tenders, nil
}

// EditTender меняет поля тендера. Разрешено только в статусах draft и
// published; в остальных возвращается TenderNotEditable.
func (s *TenderService) EditTender(ctx context.Context, actor models.Actor, tenderID string, update models.TenderUpdate) (*models.Tender, error) {
	tender, err := s.repo.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to fetch tender")
	}

	if tender.AuthorityID != actor.CompanyID {
		return nil, models.Forbidden("only the tender authority can edit this tender")
	}
	if !lifecycle.CanEditTender(tender.Status) {
		return nil, models.TenderNotEditable(
			fmt.Sprintf("cannot edit tender in '%s' status", tender.Status))
	}

	changed := false
	if update.Title != nil && *update.Title != "" {
		tender.Title = *update.Title
		changed = true
	}
	if update.Description != nil && *update.Description != "" {
		tender.Description = *update.Description
		changed = true
	}
	if update.Category != nil {
		if !allowedCategories[*update.Category] {
			return nil, models.ValidationError(fmt.Sprintf("invalid category: %s", *update.Category))
		}
		tender.Category = *update.Category
		changed = true
	}
	if update.Budget != nil {
		if !update.Budget.IsPositive() {
			return nil, models.ValidationError("budget must be positive")
		}
		tender.Budget = *update.Budget
		changed = true
	}
	if update.Requirements != nil {
		tender.Requirements = *update.Requirements
		changed = true
	}
	if update.SubmissionDeadline != nil {
		tender.SubmissionDeadline = update.SubmissionDeadline.UTC()
		changed = true
	}
	if !changed {
		return nil, models.ValidationError("no valid fields to update")
	}

	updated, err := s.repo.UpdateDetails(ctx, tender, tender.Version)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	s.cache.Invalidate(cacheTenderType, updated.ID)
	return updated, nil
}

// UpdateTenderStatus выполняет переход статуса тендера.
func (s *TenderService) UpdateTenderStatus(ctx context.Context, actor models.Actor, tenderID string, update models.TenderStatusUpdate) (*models.Tender, error) {
	tender, err := s.repo.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to fetch tender")
	}

	if tender.AuthorityID != actor.CompanyID {
		return nil, models.Forbidden("only the tender authority can change this tender")
	}
	if update.Status == models.AwardedTender {
		// Присуждение идёт только через оркестратор.
		return nil, models.InvalidTransition("use the award operation to award a tender")
	}
	if validationErr := lifecycle.ValidateTenderTransition(tender.Status, update.Status, update.Reason); validationErr != nil {
		return nil, validationErr
	}

	var reason *string
	if update.Status == models.CancelledTender {
		reason = &update.Reason
	}

	updated, err := s.repo.UpdateStatus(ctx, tenderID, update.Status, reason, tender.Version)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	s.cache.Invalidate(cacheTenderType, updated.ID)
	s.publishStatusEvent(updated, tender.Status)
	return updated, nil
}

// CloseExpired переводит открытый тендер с истёкшим дедлайном в closed.
// Вызывается планировщиком от имени системы.
func (s *TenderService) CloseExpired(ctx context.Context, tender models.Tender) (*models.Tender, error) {
	if tender.Status != models.OpenTender {
		return nil, models.InvalidTransition("only open tenders auto-close")
	}
	updated, err := s.repo.UpdateStatus(ctx, tender.ID, models.ClosedTender, nil, tender.Version)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	s.cache.Invalidate(cacheTenderType, updated.ID)
	s.publishStatusEvent(updated, tender.Status)
	return updated, nil
}

func (s *TenderService) publishStatusEvent(tender *models.Tender, from models.TenderStatus) {
	payload := map[string]any{
		"tenderId":    tender.ID,
		"tenderTitle": tender.Title,
		"from":        string(from),
		"to":          string(tender.Status),
	}

	eventType := models.TenderStatusChangedEvent
	switch tender.Status {
	case models.PublishedTender:
		eventType = models.TenderPublishedEvent
	case models.CancelledTender:
		eventType = models.TenderCancelledEvent
	case models.ClosedTender:
		eventType = models.TenderClosedEvent
	}
	s.fanout.Enqueue(tender.AuthorityID, eventType, payload)
}

func (s *TenderService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return models.ConcurrentModification("tender was modified concurrently, retry the request")
	case errors.Is(err, repository.ErrNotFound):
		return models.NotFound("tender not found")
	default:
		return models.InternalError("failed to update tender")
	}
}
