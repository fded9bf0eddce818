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

const questionColumns = `id, tender_id, asked_by, company_id, question_text, answered, created_at, updated_at`

const answerColumns = `id, question_id, answered_by, answer_text, created_at, updated_at`

// QARepository - интерфейс для работы с вопросами и ответами по тендерам.
type QARepository interface {
	InsertQuestion(ctx context.Context, question *models.Question) error
	GetQuestion(ctx context.Context, questionID string) (*models.Question, error)
	ListByTender(ctx context.Context, tenderID string) ([]models.Question, error)
	InsertAnswer(ctx context.Context, answer *models.Answer) error
	UpdateAnswer(ctx context.Context, answerID, questionID, text string) (*models.Answer, error)
	DeleteQuestion(ctx context.Context, questionID string) error
}

// PostgresQARepository - реализация QARepository для базы данных.
type PostgresQARepository struct {
	DB *pgxpool.Pool
}

// NewPostgresQARepository создаёт новый экземпляр PostgresQARepository.
func NewPostgresQARepository(db *pgxpool.Pool) *PostgresQARepository {
	return &PostgresQARepository{DB: db}
}

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	if err := row.Scan(
		&q.ID,
		&q.TenderID,
		&q.AskedBy,
		&q.AskedByCompany,
		&q.Text,
		&q.Answered,
		&q.CreatedAt,
		&q.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func scanAnswer(row pgx.Row) (*models.Answer, error) {
	var a models.Answer
	if err := row.Scan(
		&a.ID,
		&a.QuestionID,
		&a.AnsweredBy,
		&a.Text,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// InsertQuestion сохраняет новый вопрос.
func (r *PostgresQARepository) InsertQuestion(ctx context.Context, question *models.Question) error {
	insertQuery := `INSERT INTO question (id, tender_id, asked_by, company_id, question_text, answered, created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		question.ID,
		question.TenderID,
		question.AskedBy,
		question.AskedByCompany,
		question.Text,
		question.Answered,
		question.CreatedAt,
		question.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// GetQuestion возвращает вопрос вместе с ответами.
func (r *PostgresQARepository) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM question WHERE id = $1`
	question, err := scanQuestion(r.DB.QueryRow(ctx, query, questionID))
	if err != nil {
		return nil, err
	}

	answersQuery := `SELECT ` + answerColumns + ` FROM answer WHERE question_id = $1 ORDER BY created_at`
	rows, err := r.DB.Query(ctx, answersQuery, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		answer, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		question.Answers = append(question.Answers, *answer)
	}
	return question, rows.Err()
}

// ListByTender возвращает вопросы тендера с ответами, новые первыми.
func (r *PostgresQARepository) ListByTender(ctx context.Context, tenderID string) ([]models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM question WHERE tender_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.Query(ctx, query, tenderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	index := make(map[string]int)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		index[question.ID] = len(questions)
		questions = append(questions, *question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	answersQuery := `SELECT ` + answerColumns + ` FROM answer a
	                 WHERE a.question_id IN (SELECT id FROM question WHERE tender_id = $1)
	                 ORDER BY a.created_at`
	answerRows, err := r.DB.Query(ctx, answersQuery, tenderID)
	if err != nil {
		return nil, err
	}
	defer answerRows.Close()

	for answerRows.Next() {
		answer, err := scanAnswer(answerRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[answer.QuestionID]; ok {
			questions[i].Answers = append(questions[i].Answers, *answer)
		}
	}
	return questions, answerRows.Err()
}

// InsertAnswer сохраняет ответ и помечает вопрос отвеченным одной транзакцией.
func (r *PostgresQARepository) InsertAnswer(ctx context.Context, answer *models.Answer) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertQuery := `INSERT INTO answer (id, question_id, answered_by, answer_text, created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.Exec(
		ctx,
		insertQuery,
		answer.ID,
		answer.QuestionID,
		answer.AnsweredBy,
		answer.Text,
		answer.CreatedAt,
		answer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE question SET answered = TRUE, updated_at = $1 WHERE id = $2`,
		answer.CreatedAt, answer.QuestionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// UpdateAnswer заменяет текст существующего ответа.
func (r *PostgresQARepository) UpdateAnswer(ctx context.Context, answerID, questionID, text string) (*models.Answer, error) {
	query := `UPDATE answer SET answer_text = $1, updated_at = $2
	          WHERE id = $3 AND question_id = $4
	          RETURNING ` + answerColumns
	return scanAnswer(r.DB.QueryRow(ctx, query, text, time.Now().UTC(), answerID, questionID))
}

// DeleteQuestion удаляет вопрос. Ответы удаляются каскадом.
func (r *PostgresQARepository) DeleteQuestion(ctx context.Context, questionID string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM question WHERE id = $1`, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
