package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, tender_id, bid_id, uploaded_by, file_name, file_size, content_hash, locator,
	category, description, status, approved_by, approval_date, rejection_reason,
	version, parent_document_id, is_current_version, created_at, updated_at`

// DocumentRepository - интерфейс для работы с версиями документов.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *models.Document) error
	InsertVersion(ctx context.Context, doc *models.Document, parentID string) error
	GetByID(ctx context.Context, documentID string) (*models.Document, error)
	ListByOwner(ctx context.Context, owner models.DocumentOwner, category, status string, currentOnly bool) ([]models.Document, error)
	Versions(ctx context.Context, documentID string) ([]models.Document, error)
	SetApproval(ctx context.Context, documentID string, status models.DocumentStatus, reviewer string, reason *string) (*models.Document, error)
	Stats(ctx context.Context, owner models.DocumentOwner) (*models.DocumentStats, error)
}

// PostgresDocumentRepository - реализация DocumentRepository для базы данных.
type PostgresDocumentRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresDocumentRepository создаёт новый экземпляр PostgresDocumentRepository.
func NewPostgresDocumentRepository(db *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{DB: db}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	if err := row.Scan(
		&d.ID,
		&d.TenderID,
		&d.BidID,
		&d.UploadedBy,
		&d.FileName,
		&d.FileSize,
		&d.ContentHash,
		&d.Locator,
		&d.Category,
		&d.Description,
		&d.Status,
		&d.ApprovedBy,
		&d.ApprovalDate,
		&d.RejectionReason,
		&d.Version,
		&d.ParentDocumentID,
		&d.IsCurrentVersion,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Insert сохраняет первую версию документа.
func (r *PostgresDocumentRepository) Insert(ctx context.Context, doc *models.Document) error {
	return r.insert(ctx, r.DB, doc)
}

// InsertVersion добавляет новую версию документа одной транзакцией: прежняя
// текущая версия в цепочке снимается с флага is_current_version, её статус
// согласования не трогается.
func (r *PostgresDocumentRepository) InsertVersion(ctx context.Context, doc *models.Document, parentID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `UPDATE document SET is_current_version = false, updated_at = $1
	                       WHERE (id = $2 OR parent_document_id = $2) AND is_current_version = true`,
		time.Now().UTC(), parentID)
	if err != nil {
		return err
	}

	if err := r.insertTx(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresDocumentRepository) insert(ctx context.Context, db *pgxpool.Pool, doc *models.Document) error {
	insertQuery := `INSERT INTO document (id, tender_id, bid_id, uploaded_by, file_name, file_size, content_hash,
	                locator, category, description, status, version, parent_document_id, is_current_version,
	                created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := db.Exec(ctx, insertQuery,
		doc.ID, doc.TenderID, doc.BidID, doc.UploadedBy, doc.FileName, doc.FileSize, doc.ContentHash,
		doc.Locator, doc.Category, doc.Description, doc.Status, doc.Version, doc.ParentDocumentID,
		doc.IsCurrentVersion, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *PostgresDocumentRepository) insertTx(ctx context.Context, tx pgx.Tx, doc *models.Document) error {
	insertQuery := `INSERT INTO document (id, tender_id, bid_id, uploaded_by, file_name, file_size, content_hash,
	                locator, category, description, status, version, parent_document_id, is_current_version,
	                created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := tx.Exec(ctx, insertQuery,
		doc.ID, doc.TenderID, doc.BidID, doc.UploadedBy, doc.FileName, doc.FileSize, doc.ContentHash,
		doc.Locator, doc.Category, doc.Description, doc.Status, doc.Version, doc.ParentDocumentID,
		doc.IsCurrentVersion, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document version: %w", err)
	}
	return nil
}

// GetByID возвращает версию документа по идентификатору.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, documentID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM document WHERE id = $1`
	return scanDocument(r.DB.QueryRow(ctx, query, documentID))
}

// ListByOwner возвращает документы тендера или предложения с фильтрами.
func (r *PostgresDocumentRepository) ListByOwner(ctx context.Context, owner models.DocumentOwner, category, status string, currentOnly bool) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM document WHERE `
	var args []interface{}
	argIndex := 1

	switch {
	case owner.TenderID != nil:
		query += fmt.Sprintf("tender_id = $%d", argIndex)
		args = append(args, *owner.TenderID)
	case owner.BidID != nil:
		query += fmt.Sprintf("bid_id = $%d", argIndex)
		args = append(args, *owner.BidID)
	default:
		return nil, fmt.Errorf("document owner is not set")
	}
	argIndex++

	if currentOnly {
		query += " AND is_current_version = true"
	}
	if category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, category)
		argIndex++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"
	return r.queryDocuments(ctx, query, args...)
}

// Versions возвращает всю цепочку версий документа, от новых к старым.
func (r *PostgresDocumentRepository) Versions(ctx context.Context, documentID string) ([]models.Document, error) {
	doc, err := r.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	rootID := doc.ID
	if doc.ParentDocumentID != nil {
		rootID = *doc.ParentDocumentID
	}

	query := `SELECT ` + documentColumns + ` FROM document
	          WHERE id = $1 OR parent_document_id = $1 ORDER BY version DESC`
	return r.queryDocuments(ctx, query, rootID)
}

func (r *PostgresDocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// SetApproval фиксирует решение по документу: approved или rejected.
func (r *PostgresDocumentRepository) SetApproval(ctx context.Context, documentID string, status models.DocumentStatus, reviewer string, reason *string) (*models.Document, error) {
	updateQuery := `UPDATE document
	                SET status = $1, approved_by = $2, approval_date = $3, rejection_reason = $4, updated_at = $3
	                WHERE id = $5
	                RETURNING ` + documentColumns
	return scanDocument(r.DB.QueryRow(ctx, updateQuery, status, reviewer, time.Now().UTC(), reason, documentID))
}

// Stats считает производную статистику по текущим версиям документов владельца.
func (r *PostgresDocumentRepository) Stats(ctx context.Context, owner models.DocumentOwner) (*models.DocumentStats, error) {
	docs, err := r.ListByOwner(ctx, owner, "", "", true)
	if err != nil {
		return nil, err
	}

	stats := &models.DocumentStats{
		TotalDocuments: len(docs),
		ByCategory:     make(map[models.DocumentCategory]int),
		ByStatus:       make(map[models.DocumentStatus]int),
	}
	for _, doc := range docs {
		stats.ByCategory[doc.Category]++
		stats.ByStatus[doc.Status]++
		stats.TotalFileSize += doc.FileSize
		if stats.LatestUpload == nil || doc.CreatedAt.After(*stats.LatestUpload) {
			created := doc.CreatedAt
			stats.LatestUpload = &created
		}
	}
	return stats, nil
}
