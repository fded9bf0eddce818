package services

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/cache"
	"github.com/senyabanana/procurement-service/internal/ledger"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type awardFixture struct {
	tenders *fakeTenderRepo
	bids    *fakeBidRepo
	notary  *ledger.InMemoryNotary
	fanout  *notification.Fanout
	notifs  *fakeNotificationRepo
	service *AwardService

	tender *models.Tender
	winner *models.Bid
	loser  *models.Bid
	actor  models.Actor
}

func newAwardFixture() *awardFixture {
	tenders := newFakeTenderRepo()
	bids := newFakeBidRepo()
	notary := ledger.NewInMemoryNotary()
	fanout, notifs := newTestFanout()

	f := &awardFixture{
		tenders: tenders,
		bids:    bids,
		notary:  notary,
		fanout:  fanout,
		notifs:  notifs,
		actor:   models.Actor{UserID: uuid.New().String(), CompanyID: uuid.New().String()},
	}
	f.service = NewAwardService(
		tenders, bids, &fakeAwardStore{tenders: tenders, bids: bids},
		notary, fanout, cache.NewMemoryCache(), log.New(io.Discard, "", 0))

	now := time.Now().UTC()
	f.tender = &models.Tender{
		ID:                 uuid.New().String(),
		Title:              "Warehouse construction",
		Description:        "Build a 2000 sqm warehouse",
		Category:           models.Construction,
		Budget:             decimal.NewFromInt(600000),
		SubmissionDeadline: now.Add(-time.Hour),
		Status:             models.EvaluationTender,
		AuthorityID:        f.actor.CompanyID,
		Version:            4,
		CreatedAt:          now.Add(-72 * time.Hour),
		UpdatedAt:          now,
	}
	tenders.put(f.tender)

	f.winner = &models.Bid{
		ID:           uuid.New().String(),
		TenderID:     f.tender.ID,
		CompanyID:    uuid.New().String(),
		Amount:       decimal.NewFromInt(485000),
		Proposal:     "Full turnkey delivery",
		DeliveryDays: 90,
		Status:       models.UnderReviewBid,
		Version:      2,
	}
	f.loser = &models.Bid{
		ID:           uuid.New().String(),
		TenderID:     f.tender.ID,
		CompanyID:    uuid.New().String(),
		Amount:       decimal.NewFromInt(520000),
		Proposal:     "Standard delivery",
		DeliveryDays: 120,
		Status:       models.SubmittedBid,
		Version:      1,
	}
	bids.put(f.winner)
	bids.put(f.loser)
	return f
}

func (f *awardFixture) awardRequest() models.AwardRequest {
	return models.AwardRequest{
		WinningBidID:  f.winner.ID,
		Justification: "lowest compliant offer",
	}
}

func requireErrorCode(t *testing.T, err error, code models.ErrorCode) *models.ErrorResponse {
	t.Helper()
	require.Error(t, err)
	errResp, ok := err.(*models.ErrorResponse)
	require.True(t, ok, "expected *models.ErrorResponse, got %T", err)
	require.Equal(t, code, errResp.Code)
	return errResp
}

func TestAwardSuccess(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	result, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.LedgerRef)
	assert.Equal(t, "0x", result.DataHash[:2])
	assert.Equal(t, models.AwardedTender, result.Tender.Status)
	require.NotNil(t, result.Tender.WinningBidID)
	assert.Equal(t, f.winner.ID, *result.Tender.WinningBidID)
	assert.Equal(t, 1, f.notary.Len())

	statuses := map[string]models.BidStatus{}
	for _, bid := range result.Bids {
		statuses[bid.ID] = bid.Status
	}
	assert.Equal(t, models.AcceptedBid, statuses[f.winner.ID])
	assert.Equal(t, models.RejectedBid, statuses[f.loser.ID])

	stored, err := f.tenders.GetByID(ctx, f.tender.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AwardedTender, stored.Status)
	require.NotNil(t, stored.AwardLedgerRef)
	assert.Equal(t, result.LedgerRef, *stored.AwardLedgerRef)

	verification, err := f.service.Verify(ctx, f.tender.ID)
	require.NoError(t, err)
	assert.True(t, verification.Verified)
	assert.Equal(t, result.DataHash, verification.DataHash)
	assert.Equal(t, result.LedgerRef, verification.LedgerRef)

	f.fanout.Stop()
	assert.Equal(t, 3, f.notifs.countByType(models.TenderAwardedEvent))
	assert.Equal(t, 1, f.notifs.countByType(models.BidAcceptedEvent))
	assert.Equal(t, 1, f.notifs.countByType(models.BidRejectedEvent))
}

func TestAwardIdempotentReplay(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	first, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	require.NoError(t, err)

	second, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	require.NoError(t, err)

	assert.Equal(t, first.LedgerRef, second.LedgerRef)
	assert.Equal(t, first.DataHash, second.DataHash)
	assert.Equal(t, models.AwardedTender, second.Tender.Status)
	assert.Len(t, second.Bids, 2)

	// Реестр видел ровно одну запись, уведомления не дублируются.
	assert.Equal(t, 1, f.notary.Len())
	f.fanout.Stop()
	assert.Equal(t, 3, f.notifs.countByType(models.TenderAwardedEvent))
	assert.Equal(t, 1, f.notifs.countByType(models.BidAcceptedEvent))
}

func TestAwardReplayDifferentBid(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	_, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	require.NoError(t, err)

	_, err = f.service.Award(ctx, f.actor, f.tender.ID, models.AwardRequest{
		WinningBidID:  f.loser.ID,
		Justification: "changed our mind",
	})
	requireErrorCode(t, err, models.CodeInvalidTransition)
	assert.Equal(t, 1, f.notary.Len())
}

// conflictAwardStore имитирует гонку: версия тендера изменилась между
// чтением и фиксацией.
type conflictAwardStore struct{}

func (conflictAwardStore) ApplyAward(context.Context, string, string, string, string, string, int) (*models.Tender, []models.Bid, error) {
	return nil, nil, repository.ErrVersionConflict
}

func TestAwardConcurrentModification(t *testing.T) {
	f := newAwardFixture()
	f.service.store = conflictAwardStore{}
	ctx := context.Background()

	_, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeConcurrentModification)

	// Локальное состояние не тронуто, повтор безопасен.
	stored, getErr := f.tenders.GetByID(ctx, f.tender.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.EvaluationTender, stored.Status)

	f.fanout.Stop()
	assert.Equal(t, 0, f.notifs.count())
}

// withdrawingNotary отзывает победившее предложение во время обращения к
// реестру: легальная гонка, пока оркестратор ждёт внешний сервис.
type withdrawingNotary struct {
	*ledger.InMemoryNotary
	bids     *fakeBidRepo
	bidID    string
	version  int
	withdraw sync.Once
}

func (n *withdrawingNotary) RecordAward(ctx context.Context, record ledger.Record) (string, error) {
	n.withdraw.Do(func() {
		if _, err := n.bids.Withdraw(ctx, n.bidID, "changed priorities", n.version); err != nil {
			panic(err)
		}
	})
	return n.InMemoryNotary.RecordAward(ctx, record)
}

func TestAwardRejectsBidWithdrawnDuringLedgerCall(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()
	f.service.notary = &withdrawingNotary{
		InMemoryNotary: f.notary,
		bids:           f.bids,
		bidID:          f.winner.ID,
		version:        f.winner.Version,
	}

	_, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeConcurrentModification)

	// Отзыв терминален: предложение не перезаписано в accepted,
	// причина отзыва сохранена, тендер не присуждён.
	winner, getErr := f.bids.GetByID(ctx, f.winner.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.WithdrawnBid, winner.Status)
	require.NotNil(t, winner.WithdrawalReason)
	assert.Equal(t, "changed priorities", *winner.WithdrawalReason)

	stored, getErr := f.tenders.GetByID(ctx, f.tender.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.EvaluationTender, stored.Status)

	f.fanout.Stop()
	assert.Equal(t, 0, f.notifs.count())
}

func TestAwardLedgerUnavailable(t *testing.T) {
	f := newAwardFixture()
	f.notary.FailNext = true
	ctx := context.Background()

	_, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeLedgerUnavailable)

	stored, getErr := f.tenders.GetByID(ctx, f.tender.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.EvaluationTender, stored.Status)
	assert.Equal(t, 0, f.notary.Len())

	f.fanout.Stop()
	assert.Equal(t, 0, f.notifs.count())
}

func TestAwardRecoversAfterCrashBetweenLedgerAndCommit(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()
	req := f.awardRequest()

	// Запись в реестре уже есть, локальная фиксация не состоялась.
	dataHash := ComputeAwardHash(f.tender.ID, f.winner.ID, f.winner.CompanyID, f.winner.Amount, req.Justification)
	ref, err := f.notary.RecordAward(ctx, ledger.Record{
		TenderID:     f.tender.ID,
		WinningBidID: f.winner.ID,
		DataHash:     dataHash,
	})
	require.NoError(t, err)

	result, err := f.service.Award(ctx, f.actor, f.tender.ID, req)
	require.NoError(t, err)
	assert.Equal(t, ref, result.LedgerRef)
	assert.Equal(t, models.AwardedTender, result.Tender.Status)
	assert.Equal(t, 1, f.notary.Len())
}

func TestAwardWithdrawnBidNotEligible(t *testing.T) {
	f := newAwardFixture()
	f.winner.Status = models.WithdrawnBid
	f.bids.put(f.winner)

	_, err := f.service.Award(context.Background(), f.actor, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeBidNotEligible)
	assert.Equal(t, 0, f.notary.Len())
}

func TestAwardForeignBidNotEligible(t *testing.T) {
	f := newAwardFixture()
	f.winner.TenderID = uuid.New().String()
	f.bids.put(f.winner)

	_, err := f.service.Award(context.Background(), f.actor, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeBidNotEligible)
}

func TestAwardRequiresJustification(t *testing.T) {
	f := newAwardFixture()

	_, err := f.service.Award(context.Background(), f.actor, f.tender.ID, models.AwardRequest{
		WinningBidID: f.winner.ID,
	})
	requireErrorCode(t, err, models.CodeValidation)
	assert.Equal(t, 0, f.notary.Len())
}

func TestAwardForbiddenForOtherCompany(t *testing.T) {
	f := newAwardFixture()
	stranger := models.Actor{UserID: uuid.New().String(), CompanyID: uuid.New().String()}

	_, err := f.service.Award(context.Background(), stranger, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeForbidden)
}

func TestAwardRejectsNonAwardableStatus(t *testing.T) {
	f := newAwardFixture()
	f.tender.Status = models.OpenTender
	f.tenders.put(f.tender)

	_, err := f.service.Award(context.Background(), f.actor, f.tender.ID, f.awardRequest())
	requireErrorCode(t, err, models.CodeInvalidTransition)
}

func TestAwardFromClosedStatus(t *testing.T) {
	f := newAwardFixture()
	f.tender.Status = models.ClosedTender
	f.tenders.put(f.tender)

	result, err := f.service.Award(context.Background(), f.actor, f.tender.ID, f.awardRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AwardedTender, result.Tender.Status)
}

func TestVerifyDetectsTamperedJustification(t *testing.T) {
	f := newAwardFixture()
	ctx := context.Background()

	_, err := f.service.Award(ctx, f.actor, f.tender.ID, f.awardRequest())
	require.NoError(t, err)

	// Подмена обоснования после фиксации меняет канонический хеш.
	tampered := "different justification"
	stored, err := f.tenders.GetByID(ctx, f.tender.ID)
	require.NoError(t, err)
	stored.AwardJustification = &tampered
	f.tenders.put(stored)

	verification, err := f.service.Verify(ctx, f.tender.ID)
	require.NoError(t, err)
	assert.False(t, verification.Verified)
}

func TestVerifyUnawardedTender(t *testing.T) {
	f := newAwardFixture()

	verification, err := f.service.Verify(context.Background(), f.tender.ID)
	require.NoError(t, err)
	assert.False(t, verification.Verified)
	assert.Empty(t, verification.LedgerRef)
}
