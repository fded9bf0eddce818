package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository - интерфейс для работы с уведомлениями.
type NotificationRepository interface {
	Insert(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID string) error
}

// PostgresNotificationRepository - реализация NotificationRepository для базы данных.
type PostgresNotificationRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresNotificationRepository создаёт новый экземпляр PostgresNotificationRepository.
func NewPostgresNotificationRepository(db *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{DB: db}
}

// Insert сохраняет уведомление.
func (r *PostgresNotificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	insertQuery := `INSERT INTO notification (id, recipient_id, event_type, payload, read, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.DB.Exec(
		ctx,
		insertQuery,
		notification.ID,
		notification.RecipientID,
		notification.EventType,
		payload,
		notification.Read,
		notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByRecipient возвращает уведомления получателя, свежие первыми.
func (r *PostgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `SELECT id, recipient_id, event_type, payload, read, created_at
	          FROM notification WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.DB.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.EventType, &payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &n.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode payload: %w", err)
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead помечает уведомление прочитанным. Единственное изменяемое поле записи.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE notification SET read = true WHERE id = $1 AND recipient_id = $2`,
		notificationID, recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
