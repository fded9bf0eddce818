package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/lifecycle"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/notification"
	"github.com/senyabanana/procurement-service/internal/repository"

	"github.com/google/uuid"
)

// QAService управляет вопросами поставщиков к тендеру и ответами заказчика.
type QAService struct {
	questions repository.QARepository
	tenders   repository.TenderRepository
	fanout    *notification.Fanout
	now       func() time.Time
}

// NewQAService создает новый экземпляр QAService.
func NewQAService(questions repository.QARepository, tenders repository.TenderRepository, fanout *notification.Fanout) *QAService {
	return &QAService{
		questions: questions,
		tenders:   tenders,
		fanout:    fanout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ask задаёт вопрос по тендеру. Вопросы принимаются только пока тендер
// опубликован или открыт; заказчик тендера получает уведомление.
func (s *QAService) Ask(ctx context.Context, actor models.Actor, tenderID string, req models.QuestionRequest) (*models.Question, error) {
	if req.Text == "" {
		return nil, models.ValidationError("question text is required")
	}

	tender, err := s.loadTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanReceiveQuestions(tender.Status) {
		return nil, models.InvalidTransition(
			fmt.Sprintf("tender is '%s', questions are accepted only while it is published or open", tender.Status))
	}

	now := s.now()
	question := &models.Question{
		ID:        uuid.New().String(),
		TenderID:  tender.ID,
		AskedBy:   actor.UserID,
		Text:      req.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actor.CompanyID != "" {
		company := actor.CompanyID
		question.AskedByCompany = &company
	}
	if err := s.questions.InsertQuestion(ctx, question); err != nil {
		return nil, models.InternalError("failed to save question")
	}

	s.fanout.Enqueue(tender.AuthorityID, models.QuestionAskedEvent, map[string]any{
		"tenderId":   tender.ID,
		"questionId": question.ID,
	})
	return question, nil
}

// FetchTenderQuestions возвращает вопросы тендера вместе с ответами.
func (s *QAService) FetchTenderQuestions(ctx context.Context, tenderID string) ([]models.Question, error) {
	if _, err := s.loadTender(ctx, tenderID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByTender(ctx, tenderID)
	if err != nil {
		return nil, models.InternalError("failed to fetch questions")
	}
	return questions, nil
}

// FetchQuestion возвращает вопрос с ответами по идентификатору.
func (s *QAService) FetchQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("question not found")
		}
		return nil, models.InternalError("failed to fetch question")
	}
	return question, nil
}

// Answer отвечает на вопрос. Отвечать может только компания заказчика,
// и только один раз; спрашивавший получает уведомление.
func (s *QAService) Answer(ctx context.Context, actor models.Actor, questionID string, req models.AnswerRequest) (*models.Answer, error) {
	if req.Text == "" {
		return nil, models.ValidationError("answer text is required")
	}

	question, err := s.FetchQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	tender, err := s.loadTender(ctx, question.TenderID)
	if err != nil {
		return nil, err
	}
	if actor.CompanyID == "" || actor.CompanyID != tender.AuthorityID {
		return nil, models.Forbidden("only the tender authority can answer questions")
	}
	if question.Answered {
		return nil, models.InvalidTransition("question is already answered")
	}

	now := s.now()
	answer := &models.Answer{
		ID:         uuid.New().String(),
		QuestionID: question.ID,
		AnsweredBy: actor.UserID,
		Text:       req.Text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.questions.InsertAnswer(ctx, answer); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("question not found")
		}
		return nil, models.InternalError("failed to save answer")
	}

	s.fanout.Enqueue(question.AskedBy, models.QuestionAnsweredEvent, map[string]any{
		"tenderId":   tender.ID,
		"questionId": question.ID,
		"answerId":   answer.ID,
	})
	return answer, nil
}

// UpdateAnswer заменяет текст ответа. Доступно только автору ответа.
func (s *QAService) UpdateAnswer(ctx context.Context, actor models.Actor, questionID, answerID string, req models.AnswerRequest) (*models.Answer, error) {
	if req.Text == "" {
		return nil, models.ValidationError("answer text is required")
	}

	question, err := s.FetchQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	var existing *models.Answer
	for i := range question.Answers {
		if question.Answers[i].ID == answerID {
			existing = &question.Answers[i]
			break
		}
	}
	if existing == nil {
		return nil, models.NotFound("answer not found")
	}
	if existing.AnsweredBy != actor.UserID {
		return nil, models.Forbidden("only the answer author can update it")
	}

	updated, err := s.questions.UpdateAnswer(ctx, answerID, questionID, req.Text)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("answer not found")
		}
		return nil, models.InternalError("failed to update answer")
	}
	return updated, nil
}

// DeleteQuestion удаляет вопрос. Доступно только автору вопроса
// и только пока на вопрос никто не ответил.
func (s *QAService) DeleteQuestion(ctx context.Context, actor models.Actor, questionID string) error {
	question, err := s.FetchQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if question.AskedBy != actor.UserID {
		return models.Forbidden("only the question author can delete it")
	}
	if question.Answered {
		return models.InvalidTransition("answered questions cannot be deleted")
	}

	if err := s.questions.DeleteQuestion(ctx, questionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NotFound("question not found")
		}
		return models.InternalError("failed to delete question")
	}
	return nil
}

func (s *QAService) loadTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	tender, err := s.tenders.GetByID(ctx, tenderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NotFound("tender not found")
		}
		return nil, models.InternalError("failed to fetch tender")
	}
	return tender, nil
}
