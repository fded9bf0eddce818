package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// NotificationHandler - структура для обработки HTTP-запросов по уведомлениям.
type NotificationHandler struct {
	Service *services.NotificationService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewNotificationHandler создаёт новый экземпляр NotificationHandler.
func NewNotificationHandler(service *services.NotificationService, logger *log.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetNotifications обрабатывает запросы для получения уведомлений вызывающего.
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
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
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	notifications, err := h.Service.FetchNotifications(ctx, actor, unreadOnly, limit, offset)
	if err != nil {
		h.respondError(w, err, "failed to fetch notifications")
		return
	}

	utils.SendJSON(w, http.StatusOK, notifications)
}

// MarkNotificationRead помечает уведомление прочитанным.
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.MarkRead(ctx, actor, r.PathValue("notificationId")); err != nil {
		h.respondError(w, err, "failed to mark notification as read")
		return
	}

	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) respondError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Println(err)
		utils.SendError(w, errorResponse)
		return
	}
	h.Logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, fallback)
}
