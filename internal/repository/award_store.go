package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AwardStore применяет присуждение тендера как единую границу согласованности:
// тендер становится awarded, победившее предложение accepted, остальные
// неотозванные предложения rejected. Либо всё, либо ничего - читатели не
// должны видеть частично применённое присуждение.
type AwardStore interface {
	ApplyAward(ctx context.Context, tenderID, winningBidID, justification, dataHash, ledgerRef string, expectedVersion int) (*models.Tender, []models.Bid, error)
}

// PostgresAwardStore - реализация AwardStore поверх одной транзакции.
type PostgresAwardStore struct {
	DB *pgxpool.Pool
}

// NewPostgresAwardStore создаёт новый экземпляр PostgresAwardStore.
func NewPostgresAwardStore(db *pgxpool.Pool) *PostgresAwardStore {
	return &PostgresAwardStore{DB: db}
}

// ApplyAward фиксирует присуждение. Предикат по версии тендера сериализует
// присуждение с конкурентными пересмотрами и вторым присуждением: проигравший
// вызов получает ErrVersionConflict и решает сам, повторять ли запрос.
func (s *PostgresAwardStore) ApplyAward(ctx context.Context, tenderID, winningBidID, justification, dataHash, ledgerRef string, expectedVersion int) (*models.Tender, []models.Bid, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	tenderQuery := `UPDATE tender
	                SET status = $1, winning_bid_id = $2, award_justification = $3,
	                    award_data_hash = $4, award_ledger_ref = $5,
	                    version = version + 1, updated_at = $6
	                WHERE id = $7 AND version = $8 AND status = ANY($9)
	                RETURNING ` + tenderColumns
	tender, err := scanTender(tx.QueryRow(
		ctx,
		tenderQuery,
		models.AwardedTender,
		winningBidID,
		justification,
		dataHash,
		ledgerRef,
		now,
		tenderID,
		expectedVersion,
		[]string{string(models.EvaluationTender), string(models.ClosedTender)}))
	if errors.Is(err, ErrNotFound) {
		return nil, nil, s.resolveConflict(ctx, tenderID)
	}
	if err != nil {
		return nil, nil, err
	}

	// Победитель должен всё ещё быть присуждаемым: предложение, отозванное
	// между предусловиями и фиксацией, не может стать accepted.
	winnerQuery := `UPDATE bid SET status = $1, version = version + 1, updated_at = $2
	                WHERE id = $3 AND tender_id = $4 AND status = ANY($5)`
	eligible := []string{string(models.SubmittedBid), string(models.UnderReviewBid)}
	tag, err := tx.Exec(ctx, winnerQuery, models.AcceptedBid, now, winningBidID, tenderID, eligible)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bid WHERE id = $1 AND tender_id = $2)`, winningBidID, tenderID).Scan(&exists); err != nil {
			return nil, nil, err
		}
		if !exists {
			return nil, nil, ErrNotFound
		}
		return nil, nil, ErrVersionConflict
	}

	losersQuery := `UPDATE bid SET status = $1, version = version + 1, updated_at = $2
	                WHERE tender_id = $3 AND id <> $4 AND status <> ALL($5)`
	terminal := []string{string(models.WithdrawnBid), string(models.AcceptedBid), string(models.RejectedBid)}
	_, err = tx.Exec(ctx, losersQuery, models.RejectedBid, now, tenderID, winningBidID, terminal)
	if err != nil {
		return nil, nil, err
	}

	bidsQuery := `SELECT ` + bidColumns + ` FROM bid WHERE tender_id = $1 ORDER BY created_at`
	rows, err := tx.Query(ctx, bidsQuery, tenderID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, nil, err
		}
		bids = append(bids, *bid)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	rows.Close()

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return tender, bids, nil
}

func (s *PostgresAwardStore) resolveConflict(ctx context.Context, tenderID string) error {
	var exists bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tender WHERE id = $1)`, tenderID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}
