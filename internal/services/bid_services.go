package services

import (
	"context"
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

// BidService управляет жизненным циклом предложения: подача, пересмотр,
// отзыв. Проверки допустимости закрыты по умолчанию - любая
// неоднозначность трактуется как запрет.
type BidService struct {
	bids    repository.BidRepository
	tenders repository.TenderRepository
	fanout  *notification.Fanout
	cache   cache.Cache
	now     func() time.Time
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(bids repository.BidRepository, tenders repository.TenderRepository, fanout *notification.Fanout, c cache.Cache) *BidService {
	return &BidService{
		bids:    bids,
		tenders: tenders,
		fanout:  fanout,
		cache:   c,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmitBid подаёт новое предложение. Тендер должен принимать предложения,
// дедлайн не должен быть пройден, компания не может торговаться сама с собой.
func (s *BidService) SubmitBid(ctx context.Context, actor models.Actor, req models.BidRequest) (*models.Bid, error) {
	if actor.CompanyID == "" {
		return nil, models.Forbidden("caller must belong to a company to submit bids")
	}
	if req.TenderID == "" || req.Proposal == "" {
		return nil, models.ValidationError("missing required fields: tenderId or proposal")
	}
	if !req.Amount.IsPositive() {
		return nil, models.ValidationError("bid amount must be positive")
	}
	if req.DeliveryDays <= 0 {
		return nil, models.ValidationError("delivery days must be positive")
	}

	tender, err := s.tenders.GetByID(ctx, req.TenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to fetch tender")
	}

	if !lifecycle.CanReceiveBids(tender.Status) {
		return nil, models.InvalidTransition(
			fmt.Sprintf("tender is '%s', bids are accepted only while it is open", tender.Status))
	}
	if !s.now().Before(tender.SubmissionDeadline) {
		return nil, models.InvalidTransition("tender submission deadline has passed")
	}
	if tender.AuthorityID == actor.CompanyID {
		return nil, models.SelfBidForbidden("cannot bid on your own company's tender")
	}

	now := s.now()
	bid := &models.Bid{
		ID:           uuid.New().String(),
		TenderID:     tender.ID,
		CompanyID:    actor.CompanyID,
		Amount:       req.Amount,
		Proposal:     req.Proposal,
		DeliveryDays: req.DeliveryDays,
		Status:       models.SubmittedBid,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.bids.Insert(ctx, bid); err != nil {
		if errors.Is(err, repository.ErrTenderNotOpen) {
			return nil, models.InvalidTransition("tender stopped accepting bids")
		}
		return nil, models.InternalError("failed to submit bid")
	}

	s.fanout.Enqueue(tender.AuthorityID, models.BidSubmittedEvent, map[string]any{
		"tenderId": tender.ID,
		"bidId":    bid.ID,
	})
	return bid, nil
}

// FetchBid возвращает предложение по идентификатору, включая отозванные.
func (s *BidService) FetchBid(ctx context.Context, bidID string) (*models.Bid, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("bid not found")
		}
		return nil, models.InternalError("failed to fetch bid")
	}
	return bid, nil
}

// FetchTenderBids возвращает предложения по тендеру. Доступно только
// заказчику тендера; отозванные предложения в выдачу не входят.
func (s *BidService) FetchTenderBids(ctx context.Context, actor models.Actor, tenderID string, limit, offset int) ([]models.Bid, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to fetch tender")
	}
	if tender.AuthorityID != actor.CompanyID {
		return nil, models.Forbidden("only the tender authority can view its bids")
	}

	bids, err := s.bids.ListByTender(ctx, tenderID, false, limit, offset)
	if err != nil {
		return nil, models.InternalError("failed to fetch bids")
	}
	return bids, nil
}

// FetchCompanyBids возвращает предложения компании вызывающего.
func (s *BidService) FetchCompanyBids(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Bid, error) {
	if actor.CompanyID == "" {
		return nil, models.Forbidden("caller must belong to a company")
	}
	bids, err := s.bids.ListByCompany(ctx, actor.CompanyID, limit, offset)
	if err != nil {
		return nil, models.InternalError("failed to fetch bids")
	}
	return bids, nil
}

// ReviseBid пересматривает предложение: прежние значения дописываются в
// историю, затем применяются новые. Требуется хотя бы одно изменённое поле.
func (s *BidService) ReviseBid(ctx context.Context, actor models.Actor, bidID string, req models.BidRevisionRequest) (*models.Bid, error) {
	bid, tender, err := s.loadBidForMutation(ctx, actor, bidID)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanMutateBid(bid.Status, tender.Status, tender.SubmissionDeadline, s.now()) {
		return nil, models.InvalidTransition(
			fmt.Sprintf("bid cannot be revised: bid is '%s', tender is '%s'", bid.Status, tender.Status))
	}

	snapshot := models.BidRevision{
		ID:           uuid.New().String(),
		BidID:        bid.ID,
		Amount:       bid.Amount,
		Proposal:     bid.Proposal,
		DeliveryDays: bid.DeliveryDays,
		Version:      bid.Version,
		CreatedAt:    s.now(),
	}

	changed := false
	if req.Amount != nil && !req.Amount.Equal(bid.Amount) {
		if !req.Amount.IsPositive() {
			return nil, models.ValidationError("bid amount must be positive")
		}
		bid.Amount = *req.Amount
		changed = true
	}
	if req.Proposal != nil && *req.Proposal != bid.Proposal {
		if *req.Proposal == "" {
			return nil, models.ValidationError("proposal cannot be empty")
		}
		bid.Proposal = *req.Proposal
		changed = true
	}
	if req.DeliveryDays != nil && *req.DeliveryDays != bid.DeliveryDays {
		if *req.DeliveryDays <= 0 {
			return nil, models.ValidationError("delivery days must be positive")
		}
		bid.DeliveryDays = *req.DeliveryDays
		changed = true
	}
	if !changed {
		return nil, models.ValidationError("revision requires at least one changed field")
	}

	updated, err := s.bids.Revise(ctx, bid, snapshot, snapshot.Version)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	s.cache.Invalidate(cacheBidType, updated.ID)
	s.fanout.Enqueue(tender.AuthorityID, models.BidRevisedEvent, map[string]any{
		"tenderId": tender.ID,
		"bidId":    updated.ID,
	})
	return updated, nil
}

// WithdrawBid отзывает предложение. Операция необратима, требуется причина.
func (s *BidService) WithdrawBid(ctx context.Context, actor models.Actor, bidID, reason string) (*models.Bid, error) {
	if reason == "" {
		return nil, models.ValidationError("withdrawal requires a reason")
	}

	bid, tender, err := s.loadBidForMutation(ctx, actor, bidID)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanMutateBid(bid.Status, tender.Status, tender.SubmissionDeadline, s.now()) {
		return nil, models.InvalidTransition(
			fmt.Sprintf("bid cannot be withdrawn: bid is '%s', tender is '%s'", bid.Status, tender.Status))
	}

	updated, err := s.bids.Withdraw(ctx, bidID, reason, bid.Version)
	if err != nil {
		return nil, s.mapRepoError(err)
	}

	s.cache.Invalidate(cacheBidType, updated.ID)
	s.fanout.Enqueue(tender.AuthorityID, models.BidWithdrawnEvent, map[string]any{
		"tenderId": tender.ID,
		"bidId":    updated.ID,
	})
	return updated, nil
}

// FetchRevisions возвращает историю пересмотров предложения.
// Доступно владельцу предложения и заказчику тендера.
func (s *BidService) FetchRevisions(ctx context.Context, actor models.Actor, bidID string) ([]models.BidRevision, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("bid not found")
		}
		return nil, models.InternalError("failed to fetch bid")
	}

	tender, err := s.tenders.GetByID(ctx, bid.TenderID)
	if err != nil {
		return nil, models.InternalError("failed to fetch tender")
	}
	if actor.CompanyID != bid.CompanyID && actor.CompanyID != tender.AuthorityID {
		return nil, models.Forbidden("not authorized to view this bid's revisions")
	}

	revisions, err := s.bids.Revisions(ctx, bidID)
	if err != nil {
		return nil, models.InternalError("failed to fetch revisions")
	}
	return revisions, nil
}

// loadBidForMutation загружает предложение и его тендер, проверяя владельца.
func (s *BidService) loadBidForMutation(ctx context.Context, actor models.Actor, bidID string) (*models.Bid, *models.Tender, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, models.NotFound("bid not found")
		}
		return nil, nil, models.InternalError("failed to fetch bid")
	}

	if bid.CompanyID != actor.CompanyID {
		return nil, nil, models.Forbidden("only the bid owner can modify this bid")
	}

	tender, err := s.tenders.GetByID(ctx, bid.TenderID)
	if err != nil {
		// Неизвестное состояние тендера трактуется как запрет.
		return nil, nil, models.InvalidTransition("parent tender state is unknown")
	}
	return bid, tender, nil
}

func (s *BidService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return models.ConcurrentModification("bid was modified concurrently, retry the request")
	case errors.Is(err, repository.ErrNotFound):
		return models.NotFound("bid not found")
	default:
		return models.InternalError("failed to update bid")
	}
}
