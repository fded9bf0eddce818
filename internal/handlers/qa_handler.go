package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// QAHandler - структура для обработки HTTP-запросов вопросов и ответов.
type QAHandler struct {
	Service *services.QAService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewQAHandler создаёт новый экземпляр QAHandler.
func NewQAHandler(service *services.QAService, logger *log.Logger, timeout time.Duration) *QAHandler {
	return &QAHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// AskQuestion обрабатывает запросы на создание вопроса по тендеру.
func (h *QAHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, errResp := utils.GetActor(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	question, err := h.Service.Ask(ctx, actor, r.PathValue("tenderId"), req)
	if err != nil {
		h.respondError(w, err, "failed to ask question")
		return
	}

	utils.SendJSON(w, http.StatusCreated, question)
}

// GetTenderQuestions обрабатывает запросы на список вопросов тендера.
func (h *QAHandler) GetTenderQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	questions, err := h.Service.FetchTenderQuestions(ctx, r.PathValue("tenderId"))
	if err != nil {
		h.respondError(w, err, "failed to fetch questions")
		return
	}

	utils.SendJSON(w, http.StatusOK, questions)
}

// GetQuestion обрабатывает запросы на получение одного вопроса.
func (h *QAHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	question, err := h.Service.FetchQuestion(ctx, r.PathValue("questionId"))
	if err != nil {
		h.respondError(w, err, "failed to fetch question")
		return
	}

	utils.SendJSON(w, http.StatusOK, question)
}

// AnswerQuestion обрабатывает запросы на ответ заказчика.
func (h *QAHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, errResp := utils.GetActor(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	answer, err := h.Service.Answer(ctx, actor, r.PathValue("questionId"), req)
	if err != nil {
		h.respondError(w, err, "failed to answer question")
		return
	}

	utils.SendJSON(w, http.StatusCreated, answer)
}

// UpdateAnswer обрабатывает запросы на правку текста ответа.
func (h *QAHandler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, errResp := utils.GetActor(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	answer, err := h.Service.UpdateAnswer(ctx, actor, r.PathValue("questionId"), r.PathValue("answerId"), req)
	if err != nil {
		h.respondError(w, err, "failed to update answer")
		return
	}

	utils.SendJSON(w, http.StatusOK, answer)
}

// DeleteQuestion обрабатывает запросы на удаление вопроса.
func (h *QAHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only DELETE is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, errResp := utils.GetActor(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	if err := h.Service.DeleteQuestion(ctx, actor, r.PathValue("questionId")); err != nil {
		h.respondError(w, err, "failed to delete question")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *QAHandler) respondError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Println(err)
		utils.SendError(w, errorResponse)
		return
	}
	h.Logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, fallback)
}
