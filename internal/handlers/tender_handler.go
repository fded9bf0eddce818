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

// TenderHandler - структура для обработки HTTP-запросов по тендерам.
type TenderHandler struct {
	Service *services.TenderService
	Awards  *services.AwardService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, awards *services.AwardService, logger *log.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Awards:  awards,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetTenders обрабатывает запросы для получения списка тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	categories := r.URL.Query()["category"]

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	tenders, err := h.Service.FetchTenders(ctx, limit, offset, categories)
	if err != nil {
		h.respondError(w, err, "failed to fetch tenders")
		return
	}

	utils.SendJSON(w, http.StatusOK, tenders)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
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

	var tenderReq models.TenderRequest
	if err := json.NewDecoder(r.Body).Decode(&tenderReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	tender, err := h.Service.CreateTender(ctx, actor, tenderReq)
	if err != nil {
		h.respondError(w, err, "failed to create tender")
		return
	}

	utils.SendJSON(w, http.StatusCreated, tender)
}

// GetTender обрабатывает запросы для получения одного тендера.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")

	tender, err := h.Service.FetchTender(ctx, tenderId)
	if err != nil {
		h.respondError(w, err, "failed to fetch tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, tender)
}

// GetMyTenders обрабатывает запросы для получения тендеров заказчика.
func (h *TenderHandler) GetMyTenders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, errResp := utils.GetActor(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	tenders, err := h.Service.FetchAuthorityTenders(ctx, actor, limit, offset)
	if err != nil {
		h.respondError(w, err, "failed to fetch tenders")
		return
	}

	utils.SendJSON(w, http.StatusOK, tenders)
}

// EditTender обрабатывает запросы для изменения тендера.
func (h *TenderHandler) EditTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only PATCH is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	actor, errResp := utils.GetActor(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	tenderId := r.PathValue("tenderId")

	var update models.TenderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	updatedTender, err := h.Service.EditTender(ctx, actor, tenderId, update)
	if err != nil {
		h.respondError(w, err, "failed to update tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, updatedTender)
}

// UpdateTenderStatus обрабатывает запросы для изменения статуса тендера.
func (h *TenderHandler) UpdateTenderStatus(w http.ResponseWriter, r *http.Request) {
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

	tenderId := r.PathValue("tenderId")

	var update models.TenderStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	tender, err := h.Service.UpdateTenderStatus(ctx, actor, tenderId, update)
	if err != nil {
		h.respondError(w, err, "failed to update tender status")
		return
	}

	utils.SendJSON(w, http.StatusOK, tender)
}

// AwardTender обрабатывает запросы на присуждение тендера.
func (h *TenderHandler) AwardTender(w http.ResponseWriter, r *http.Request) {
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

	tenderId := r.PathValue("tenderId")

	var awardReq models.AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&awardReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	result, err := h.Awards.Award(ctx, actor, tenderId, awardReq)
	if err != nil {
		h.respondError(w, err, "failed to award tender")
		return
	}

	utils.SendJSON(w, http.StatusOK, result)
}

// VerifyAward обрабатывает запросы на сверку присуждения с реестром.
func (h *TenderHandler) VerifyAward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")

	verification, err := h.Awards.Verify(ctx, tenderId)
	if err != nil {
		h.respondError(w, err, "failed to verify award")
		return
	}

	utils.SendJSON(w, http.StatusOK, verification)
}

func (h *TenderHandler) respondError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Println(err)
		utils.SendError(w, errorResponse)
		return
	}
	h.Logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, fallback)
}
