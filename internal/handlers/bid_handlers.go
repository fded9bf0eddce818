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

// BidHandler - структура для обработки HTTP-запросов по предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewBidHandler создаёт новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *log.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для подачи предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
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

	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	bid, err := h.Service.SubmitBid(ctx, actor, bidReq)
	if err != nil {
		h.respondError(w, err, "failed to submit bid")
		return
	}

	utils.SendJSON(w, http.StatusCreated, bid)
}

// GetBid обрабатывает запросы для получения одного предложения.
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidId := r.PathValue("bidId")

	bid, err := h.Service.FetchBid(ctx, bidId)
	if err != nil {
		h.respondError(w, err, "failed to fetch bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// GetTenderBids обрабатывает запросы для получения предложений тендера.
// Доступно только заказчику этого тендера.
func (h *BidHandler) GetTenderBids(w http.ResponseWriter, r *http.Request) {
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

	tenderId := r.PathValue("tenderId")

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	bids, err := h.Service.FetchTenderBids(ctx, actor, tenderId, limit, offset)
	if err != nil {
		h.respondError(w, err, "failed to fetch bids")
		return
	}

	utils.SendJSON(w, http.StatusOK, bids)
}

// GetMyBids обрабатывает запросы для получения предложений компании.
func (h *BidHandler) GetMyBids(w http.ResponseWriter, r *http.Request) {
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

	bids, err := h.Service.FetchCompanyBids(ctx, actor, limit, offset)
	if err != nil {
		h.respondError(w, err, "failed to fetch bids")
		return
	}

	utils.SendJSON(w, http.StatusOK, bids)
}

// ReviseBid обрабатывает запросы для пересмотра предложения.
func (h *BidHandler) ReviseBid(w http.ResponseWriter, r *http.Request) {
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

	bidId := r.PathValue("bidId")

	var revision models.BidRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&revision); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	bid, err := h.Service.ReviseBid(ctx, actor, bidId, revision)
	if err != nil {
		h.respondError(w, err, "failed to revise bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// WithdrawBid обрабатывает запросы для отзыва предложения.
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
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

	bidId := r.PathValue("bidId")

	var withdrawal models.BidWithdrawal
	if err := json.NewDecoder(r.Body).Decode(&withdrawal); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	bid, err := h.Service.WithdrawBid(ctx, actor, bidId, withdrawal.Reason)
	if err != nil {
		h.respondError(w, err, "failed to withdraw bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// GetBidRevisions обрабатывает запросы для получения истории пересмотров.
func (h *BidHandler) GetBidRevisions(w http.ResponseWriter, r *http.Request) {
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

	bidId := r.PathValue("bidId")

	revisions, err := h.Service.FetchRevisions(ctx, actor, bidId)
	if err != nil {
		h.respondError(w, err, "failed to fetch bid revisions")
		return
	}

	utils.SendJSON(w, http.StatusOK, revisions)
}

func (h *BidHandler) respondError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Println(err)
		utils.SendError(w, errorResponse)
		return
	}
	h.Logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, fallback)
}
