package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/senyabanana/procurement-service/internal/cache"
	"github.com/senyabanana/procurement-service/internal/ledger"
	"github.com/senyabanana/procurement-service/internal/lifecycle"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"
)

// AwardService - оркестратор присуждения тендера. Управляет переходом
// тендера и всех его предложений, внешней записью в реестр и пост-фактум
// побочными эффектами. Сам запросы не повторяет: ConcurrentModification
// и LedgerUnavailable отдаются вызывающему как безопасные для повтора.
type AwardService struct {
	tenders repository.TenderRepository
	bids    repository.BidRepository
	store   repository.AwardStore
	notary  ledger.Notary
	fanout  *notification.Fanout
	cache   cache.Cache
	logger  *log.Logger
}

// NewAwardService создаёт новый экземпляр AwardService.
func NewAwardService(
	tenders repository.TenderRepository,
	bids repository.BidRepository,
	store repository.AwardStore,
	notary ledger.Notary,
	fanout *notification.Fanout,
	c cache.Cache,
	logger *log.Logger,
) *AwardService {
	return &AwardService{
		tenders: tenders,
		bids:    bids,
		store:   store,
		notary:  notary,
		fanout:  fanout,
		cache:   c,
		logger:  logger,
	}
}

// Award присуждает тендер победившему предложению.
//
// Порядок строгий: предусловия, затем запись в реестр, затем локальная
// фиксация одной транзакцией, затем необязательные побочные эффекты.
// Если реестр недоступен, локальное состояние не меняется. Если процесс
// упал между записью в реестр и фиксацией, повторный вызов получает от
// реестра существующую ссылку и завершает фиксацию.
func (s *AwardService) Award(ctx context.Context, actor models.Actor, tenderID string, req models.AwardRequest) (*models.AwardResult, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to load tender")
	}

	if tender.AuthorityID != actor.CompanyID {
		return nil, models.Forbidden("only the tender authority can award this tender")
	}

	// Идемпотентный повтор: тендер уже присуждён этим же предложением.
	if tender.Status == models.AwardedTender {
		return s.replayAward(ctx, tender, req)
	}

	if !lifecycle.CanAwardTender(tender.Status) {
		return nil, models.InvalidTransition(
			fmt.Sprintf("cannot award tender in '%s' status", tender.Status))
	}

	bid, err := s.bids.GetByID(ctx, req.WinningBidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.BidNotEligible("winning bid not found")
		}
		return nil, models.InternalError("failed to load bid")
	}
	if bid.TenderID != tender.ID {
		return nil, models.BidNotEligible("bid does not belong to this tender")
	}
	if !lifecycle.EligibleForAward(bid.Status) {
		return nil, models.BidNotEligible("cannot award to a withdrawn bid")
	}

	if req.Justification == "" {
		return nil, models.ValidationError("award justification is required")
	}

	dataHash := ComputeAwardHash(tender.ID, bid.ID, bid.CompanyID, bid.Amount, req.Justification)

	ledgerRef, err := s.notary.RecordAward(ctx, ledger.Record{
		TenderID:         tender.ID,
		WinningBidID:     bid.ID,
		WinningCompanyID: bid.CompanyID,
		Amount:           bid.Amount.String(),
		DataHash:         dataHash,
	})
	if err != nil {
		var already *ledger.AlreadyRecordedError
		if errors.As(err, &already) {
			// Восстановление после падения между записью в реестр
			// и локальной фиксацией.
			ledgerRef = already.Reference
		} else {
			return nil, models.LedgerUnavailable("award ledger is unavailable, retry later")
		}
	}

	updatedTender, allBids, err := s.store.ApplyAward(ctx, tender.ID, bid.ID, req.Justification, dataHash, ledgerRef, tender.Version)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, models.ConcurrentModification("tender was modified concurrently, retry the award")
		case errors.Is(err, repository.ErrNotFound):
			return nil, models.NotFound("tender or bid disappeared during award")
		default:
			return nil, models.InternalError("failed to commit award")
		}
	}

	s.publishAwardEffects(updatedTender, allBids)

	return &models.AwardResult{
		LedgerRef: ledgerRef,
		DataHash:  dataHash,
		Tender:    updatedTender,
		Bids:      allBids,
	}, nil
}

// replayAward возвращает результат уже состоявшегося присуждения без
// повторного обращения к реестру и без повторной рассылки уведомлений.
func (s *AwardService) replayAward(ctx context.Context, tender *models.Tender, req models.AwardRequest) (*models.AwardResult, error) {
	if tender.WinningBidID == nil || *tender.WinningBidID != req.WinningBidID {
		return nil, models.InvalidTransition("tender already awarded to a different bid")
	}
	if tender.AwardLedgerRef == nil || tender.AwardDataHash == nil {
		return nil, models.InternalError("awarded tender is missing its ledger reference")
	}

	bids, err := s.bids.ListByTender(ctx, tender.ID, true, allBidsLimit, 0)
	if err != nil {
		return nil, models.InternalError("failed to load bids")
	}

	return &models.AwardResult{
		LedgerRef: *tender.AwardLedgerRef,
		DataHash:  *tender.AwardDataHash,
		Tender:    tender,
		Bids:      bids,
	}, nil
}

// Verify сверяет локальные данные присуждения с внешним реестром:
// канонический хеш пересчитывается из текущего состояния и сравнивается
// с тем, что хранит нотариус. Расхождение означает вмешательство в данные.
func (s *AwardService) Verify(ctx context.Context, tenderID string) (*models.AwardVerification, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to load tender")
	}

	if tender.Status != models.AwardedTender || tender.WinningBidID == nil || tender.AwardJustification == nil {
		return &models.AwardVerification{TenderID: tender.ID, Verified: false}, nil
	}

	bid, err := s.bids.GetByID(ctx, *tender.WinningBidID)
	if err != nil {
		return nil, models.InternalError("failed to load winning bid")
	}

	recomputed := ComputeAwardHash(tender.ID, bid.ID, bid.CompanyID, bid.Amount, *tender.AwardJustification)

	verified, err := s.notary.Verify(ctx, tender.ID, recomputed)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return &models.AwardVerification{TenderID: tender.ID, Verified: false, DataHash: recomputed}, nil
		}
		return nil, models.LedgerUnavailable("award ledger is unavailable, retry later")
	}

	result := &models.AwardVerification{
		TenderID:     tender.ID,
		Verified:     verified,
		DataHash:     recomputed,
		WinningBidID: bid.ID,
	}
	if record, err := s.notary.GetAward(ctx, tender.ID); err == nil {
		result.LedgerRef = record.Reference
	}
	return result, nil
}

// publishAwardEffects выполняет побочные эффекты после границы фиксации:
// инвалидацию кеша и постановку уведомлений в очередь. Эффекты необязательны
// и не влияют на результат присуждения.
func (s *AwardService) publishAwardEffects(tender *models.Tender, bids []models.Bid) {
	s.cache.Invalidate(cacheTenderType, tender.ID)
	for _, bid := range bids {
		s.cache.Invalidate(cacheBidType, bid.ID)
	}

	payload := map[string]any{
		"tenderId":     tender.ID,
		"tenderTitle":  tender.Title,
		"winningBidId": *tender.WinningBidID,
	}
	s.fanout.Enqueue(tender.AuthorityID, models.TenderAwardedEvent, payload)

	for _, bid := range bids {
		s.fanout.Enqueue(bid.CompanyID, models.TenderAwardedEvent, payload)
		switch bid.Status {
		case models.AcceptedBid:
			s.fanout.Enqueue(bid.CompanyID, models.BidAcceptedEvent, map[string]any{
				"tenderId": tender.ID,
				"bidId":    bid.ID,
			})
		case models.RejectedBid:
			s.fanout.Enqueue(bid.CompanyID, models.BidRejectedEvent, map[string]any{
				"tenderId": tender.ID,
				"bidId":    bid.ID,
			})
		}
	}
}
