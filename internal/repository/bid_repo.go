package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const bidColumns = `id, tender_id, company_id, amount::text, proposal, delivery_days,
	status, withdrawal_reason, version, created_at, updated_at`

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	Insert(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, bidID string) (*models.Bid, error)
	ListByTender(ctx context.Context, tenderID string, includeWithdrawn bool, limit, offset int) ([]models.Bid, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]models.Bid, error)
	Revise(ctx context.Context, bid *models.Bid, snapshot models.BidRevision, expectedVersion int) (*models.Bid, error)
	Withdraw(ctx context.Context, bidID, reason string, expectedVersion int) (*models.Bid, error)
	UpdateStatus(ctx context.Context, bidID string, status models.BidStatus, expectedVersion int) (*models.Bid, error)
	Revisions(ctx context.Context, bidID string) ([]models.BidRevision, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var b models.Bid
	var amount string
	if err := row.Scan(
		&b.ID,
		&b.TenderID,
		&b.CompanyID,
		&amount,
		&b.Proposal,
		&b.DeliveryDays,
		&b.Status,
		&b.WithdrawalReason,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	b.Amount = parsed
	return &b, nil
}

// Insert сохраняет новое предложение.
func (r *PostgresBidRepository) Insert(ctx context.Context, bid *models.Bid) error {
	// Вставка охраняет сама себя: тендер мог перестать принимать предложения
	// между проверкой статуса в сервисе и этой записью.
	insertQuery := `INSERT INTO bid (id, tender_id, company_id, amount, proposal, delivery_days,
	                status, version, created_at, updated_at)
	                SELECT $1, t.id, $3, $4, $5, $6, $7, $8, $9, $10
	                FROM tender t WHERE t.id = $2 AND t.status = $11`
	tag, err := r.DB.Exec(
		ctx,
		insertQuery,
		bid.ID,
		bid.TenderID,
		bid.CompanyID,
		bid.Amount.String(),
		bid.Proposal,
		bid.DeliveryDays,
		bid.Status,
		bid.Version,
		bid.CreatedAt,
		bid.UpdatedAt,
		models.OpenTender)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenderNotOpen
	}
	return nil
}

// GetByID возвращает предложение по идентификатору, включая отозванные.
func (r *PostgresBidRepository) GetByID(ctx context.Context, bidID string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE id = $1`
	return scanBid(r.DB.QueryRow(ctx, query, bidID))
}

// ListByTender возвращает предложения по тендеру. Отозванные предложения
// по умолчанию исключаются из выдачи.
func (r *PostgresBidRepository) ListByTender(ctx context.Context, tenderID string, includeWithdrawn bool, limit, offset int) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE tender_id = $1`
	args := []interface{}{tenderID}
	argIndex := 2

	if !includeWithdrawn {
		query += fmt.Sprintf(" AND status <> $%d", argIndex)
		args = append(args, models.WithdrawnBid)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return r.queryBids(ctx, query, args...)
}

// ListByCompany возвращает предложения, поданные компанией.
func (r *PostgresBidRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid WHERE company_id = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryBids(ctx, query, companyID, limit, offset)
}

func (r *PostgresBidRepository) queryBids(ctx context.Context, query string, args ...interface{}) ([]models.Bid, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

// Revise применяет пересмотр предложения одной транзакцией: снимок прежних
// значений дописывается в историю, затем обновляется само предложение
// с оптимистической проверкой версии.
func (r *PostgresBidRepository) Revise(ctx context.Context, bid *models.Bid, snapshot models.BidRevision, expectedVersion int) (*models.Bid, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	historyQuery := `INSERT INTO bid_revision (id, bid_id, amount, proposal, delivery_days, version, created_at)
	                 VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.Exec(
		ctx,
		historyQuery,
		snapshot.ID,
		snapshot.BidID,
		snapshot.Amount.String(),
		snapshot.Proposal,
		snapshot.DeliveryDays,
		snapshot.Version,
		snapshot.CreatedAt)
	if err != nil {
		return nil, err
	}

	updateQuery := `UPDATE bid
	                SET amount = $1, proposal = $2, delivery_days = $3, version = version + 1, updated_at = $4
	                WHERE id = $5 AND version = $6
	                RETURNING ` + bidColumns
	updated, err := scanBid(tx.QueryRow(
		ctx,
		updateQuery,
		bid.Amount.String(),
		bid.Proposal,
		bid.DeliveryDays,
		time.Now().UTC(),
		bid.ID,
		expectedVersion))
	if errors.Is(err, ErrNotFound) {
		return nil, r.resolveConflict(ctx, bid.ID)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// Withdraw помечает предложение отозванным. Операция необратима.
func (r *PostgresBidRepository) Withdraw(ctx context.Context, bidID, reason string, expectedVersion int) (*models.Bid, error) {
	updateQuery := `UPDATE bid
	                SET status = $1, withdrawal_reason = $2, version = version + 1, updated_at = $3
	                WHERE id = $4 AND version = $5
	                RETURNING ` + bidColumns
	updated, err := scanBid(r.DB.QueryRow(ctx, updateQuery, models.WithdrawnBid, reason, time.Now().UTC(), bidID, expectedVersion))
	if errors.Is(err, ErrNotFound) {
		return nil, r.resolveConflict(ctx, bidID)
	}
	return updated, err
}

// UpdateStatus меняет статус предложения с оптимистической проверкой версии.
func (r *PostgresBidRepository) UpdateStatus(ctx context.Context, bidID string, status models.BidStatus, expectedVersion int) (*models.Bid, error) {
	updateQuery := `UPDATE bid SET status = $1, version = version + 1, updated_at = $2
	                WHERE id = $3 AND version = $4
	                RETURNING ` + bidColumns
	updated, err := scanBid(r.DB.QueryRow(ctx, updateQuery, status, time.Now().UTC(), bidID, expectedVersion))
	if errors.Is(err, ErrNotFound) {
		return nil, r.resolveConflict(ctx, bidID)
	}
	return updated, err
}

// Revisions возвращает историю пересмотров предложения в порядке добавления.
func (r *PostgresBidRepository) Revisions(ctx context.Context, bidID string) ([]models.BidRevision, error) {
	query := `SELECT id, bid_id, amount::text, proposal, delivery_days, version, created_at
	          FROM bid_revision WHERE bid_id = $1 ORDER BY version`
	rows, err := r.DB.Query(ctx, query, bidID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []models.BidRevision
	for rows.Next() {
		var rev models.BidRevision
		var amount string
		if err := rows.Scan(
			&rev.ID,
			&rev.BidID,
			&amount,
			&rev.Proposal,
			&rev.DeliveryDays,
			&rev.Version,
			&rev.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		rev.Amount = parsed
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

func (r *PostgresBidRepository) resolveConflict(ctx context.Context, bidID string) error {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bid WHERE id = $1)`, bidID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}
