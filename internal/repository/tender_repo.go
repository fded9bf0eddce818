package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const tenderColumns = `id, title, description, category, budget::text, requirements, submission_deadline,
	status, authority_id, winning_bid_id, award_justification, award_data_hash, award_ledger_ref,
	cancellation_reason, version, created_at, updated_at`

// TenderRepository - интерфейс для работы с тендерами.
type TenderRepository interface {
	Insert(ctx context.Context, tender *models.Tender) error
	GetByID(ctx context.Context, tenderID string) (*models.Tender, error)
	List(ctx context.Context, limit, offset int, categories []string) ([]models.Tender, error)
	ListByAuthority(ctx context.Context, authorityID string, limit, offset int) ([]models.Tender, error)
	ListExpiredOpen(ctx context.Context, now time.Time) ([]models.Tender, error)
	UpdateDetails(ctx context.Context, tender *models.Tender, expectedVersion int) (*models.Tender, error)
	UpdateStatus(ctx context.Context, tenderID string, status models.TenderStatus, reason *string, expectedVersion int) (*models.Tender, error)
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

func scanTender(row pgx.Row) (*models.Tender, error) {
	var t models.Tender
	var budget string
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Category,
		&budget,
		&t.Requirements,
		&t.SubmissionDeadline,
		&t.Status,
		&t.AuthorityID,
		&t.WinningBidID,
		&t.AwardJustification,
		&t.AwardDataHash,
		&t.AwardLedgerRef,
		&t.CancellationReason,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	parsed, err := decimal.NewFromString(budget)
	if err != nil {
		return nil, fmt.Errorf("failed to parse budget: %w", err)
	}
	t.Budget = parsed
	return &t, nil
}

// Insert сохраняет новый тендер.
func (r *PostgresTenderRepository) Insert(ctx context.Context, tender *models.Tender) error {
	insertQuery := `INSERT INTO tender (id, title, description, category, budget, requirements, submission_deadline,
	                status, authority_id, version, created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		tender.ID,
		tender.Title,
		tender.Description,
		tender.Category,
		tender.Budget.String(),
		tender.Requirements,
		tender.SubmissionDeadline,
		tender.Status,
		tender.AuthorityID,
		tender.Version,
		tender.CreatedAt,
		tender.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tender: %w", err)
	}
	return nil
}

// GetByID возвращает тендер по идентификатору.
func (r *PostgresTenderRepository) GetByID(ctx context.Context, tenderID string) (*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender WHERE id = $1`
	return scanTender(r.DB.QueryRow(ctx, query, tenderID))
}

// List возвращает список тендеров с фильтром по категориям.
func (r *PostgresTenderRepository) List(ctx context.Context, limit, offset int, categories []string) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender`
	var filters []string
	var args []interface{}
	argIndex := 1

	if len(categories) > 0 {
		filters = append(filters, fmt.Sprintf("category = ANY($%d)", argIndex))
		args = append(args, pq.Array(categories))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return r.queryTenders(ctx, query, args...)
}

// ListByAuthority возвращает тендеры, созданные организацией-заказчиком.
func (r *PostgresTenderRepository) ListByAuthority(ctx context.Context, authorityID string, limit, offset int) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender WHERE authority_id = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryTenders(ctx, query, authorityID, limit, offset)
}

// ListExpiredOpen возвращает открытые тендеры с истёкшим дедлайном подачи.
func (r *PostgresTenderRepository) ListExpiredOpen(ctx context.Context, now time.Time) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tender
	          WHERE status = $1 AND submission_deadline <= $2 ORDER BY submission_deadline`
	return r.queryTenders(ctx, query, models.OpenTender, now)
}

func (r *PostgresTenderRepository) queryTenders(ctx context.Context, query string, args ...interface{}) ([]models.Tender, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}

// UpdateDetails перезаписывает изменяемые поля тендера с оптимистической
// проверкой версии. Статусные и присужденческие поля этим путём не меняются.
func (r *PostgresTenderRepository) UpdateDetails(ctx context.Context, tender *models.Tender, expectedVersion int) (*models.Tender, error) {
	updateQuery := `UPDATE tender
	                SET title = $1, description = $2, category = $3, budget = $4, requirements = $5,
	                    submission_deadline = $6, version = version + 1, updated_at = $7
	                WHERE id = $8 AND version = $9
	                RETURNING ` + tenderColumns
	updated, err := scanTender(r.DB.QueryRow(
		ctx,
		updateQuery,
		tender.Title,
		tender.Description,
		tender.Category,
		tender.Budget.String(),
		tender.Requirements,
		tender.SubmissionDeadline,
		time.Now().UTC(),
		tender.ID,
		expectedVersion))
	if errors.Is(err, ErrNotFound) {
		return nil, r.resolveConflict(ctx, tender.ID)
	}
	return updated, err
}

// UpdateStatus меняет статус тендера с оптимистической проверкой версии.
func (r *PostgresTenderRepository) UpdateStatus(ctx context.Context, tenderID string, status models.TenderStatus, reason *string, expectedVersion int) (*models.Tender, error) {
	updateQuery := `UPDATE tender
	                SET status = $1, cancellation_reason = COALESCE($2, cancellation_reason),
	                    version = version + 1, updated_at = $3
	                WHERE id = $4 AND version = $5
	                RETURNING ` + tenderColumns
	updated, err := scanTender(r.DB.QueryRow(ctx, updateQuery, status, reason, time.Now().UTC(), tenderID, expectedVersion))
	if errors.Is(err, ErrNotFound) {
		return nil, r.resolveConflict(ctx, tenderID)
	}
	return updated, err
}

// resolveConflict различает отсутствующий тендер и конфликт версий.
func (r *PostgresTenderRepository) resolveConflict(ctx context.Context, tenderID string) error {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tender WHERE id = $1)`, tenderID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}
