package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"
)

const maxUploadMemory = 10 << 20

// DocumentHandler - структура для обработки HTTP-запросов по документам.
type DocumentHandler struct {
	Service *services.DocumentService
	Logger  *log.Logger
	Timeout time.Duration
}

// NewDocumentHandler создаёт новый экземпляр DocumentHandler.
func NewDocumentHandler(service *services.DocumentService, logger *log.Logger, timeout time.Duration) *DocumentHandler {
	return &DocumentHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// UploadDocument обрабатывает загрузку первой версии документа.
// Запрос multipart: file, category, description и tender_id или bid_id.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
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

	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	owner := ownerFromForm(r)
	category := models.DocumentCategory(r.FormValue("category"))
	description := r.FormValue("description")

	doc, err := h.Service.Upload(ctx, actor, owner, category, fileName, description, data)
	if err != nil {
		h.respondError(w, err, "failed to upload document")
		return
	}

	utils.SendJSON(w, http.StatusCreated, doc)
}

// UploadDocumentVersion обрабатывает загрузку новой версии документа.
func (h *DocumentHandler) UploadDocumentVersion(w http.ResponseWriter, r *http.Request) {
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

	documentId := r.PathValue("documentId")

	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	description := r.FormValue("description")

	doc, err := h.Service.UploadVersion(ctx, actor, documentId, fileName, description, data)
	if err != nil {
		h.respondError(w, err, "failed to upload document version")
		return
	}

	utils.SendJSON(w, http.StatusCreated, doc)
}

// SubmitDocument переводит документ на согласование.
func (h *DocumentHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.Service.SubmitForApproval(ctx, actor, r.PathValue("documentId"))
	if err != nil {
		h.respondError(w, err, "failed to submit document")
		return
	}

	utils.SendJSON(w, http.StatusOK, doc)
}

// ApproveDocument согласует документ.
func (h *DocumentHandler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.Service.Approve(ctx, actor, r.PathValue("documentId"))
	if err != nil {
		h.respondError(w, err, "failed to approve document")
		return
	}

	utils.SendJSON(w, http.StatusOK, doc)
}

// RejectDocument отклоняет документ с указанием причины.
func (h *DocumentHandler) RejectDocument(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return
	}

	doc, err := h.Service.Reject(ctx, actor, r.PathValue("documentId"), body.Reason)
	if err != nil {
		h.respondError(w, err, "failed to reject document")
		return
	}

	utils.SendJSON(w, http.StatusOK, doc)
}

// DownloadDocument отдаёт содержимое документа после сверки дайджеста.
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	doc, data, err := h.Service.Download(ctx, r.PathValue("documentId"))
	if err != nil {
		h.respondError(w, err, "failed to download document")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Println(err)
	}
}

// GetDocumentVersions обрабатывает запросы истории версий документа.
func (h *DocumentHandler) GetDocumentVersions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	versions, err := h.Service.Versions(ctx, r.PathValue("documentId"))
	if err != nil {
		h.respondError(w, err, "failed to fetch document versions")
		return
	}

	utils.SendJSON(w, http.StatusOK, versions)
}

// GetDocuments обрабатывает запросы списка документов владельца.
func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	owner, errResp := ownerFromQuery(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	category := r.URL.Query().Get("category")
	status := r.URL.Query().Get("status")
	currentOnly := r.URL.Query().Get("all_versions") != "true"

	docs, err := h.Service.List(ctx, owner, category, status, currentOnly)
	if err != nil {
		h.respondError(w, err, "failed to fetch documents")
		return
	}

	utils.SendJSON(w, http.StatusOK, docs)
}

// GetDocumentStats обрабатывает запросы статистики документов владельца.
func (h *DocumentHandler) GetDocumentStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	owner, errResp := ownerFromQuery(r)
	if errResp != nil {
		utils.SendError(w, errResp)
		return
	}

	stats, err := h.Service.Stats(ctx, owner)
	if err != nil {
		h.respondError(w, err, "failed to fetch document stats")
		return
	}

	utils.SendJSON(w, http.StatusOK, stats)
}

// readUpload читает файл из multipart-формы. Ошибки пишутся сразу в ответ.
func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid multipart form")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "file field is required")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.Logger.Println(err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, "failed to read uploaded file")
		return "", nil, false
	}
	return header.Filename, data, true
}

func ownerFromForm(r *http.Request) models.DocumentOwner {
	var owner models.DocumentOwner
	if v := r.FormValue("tender_id"); v != "" {
		owner.TenderID = &v
	}
	if v := r.FormValue("bid_id"); v != "" {
		owner.BidID = &v
	}
	return owner
}

func ownerFromQuery(r *http.Request) (models.DocumentOwner, *models.ErrorResponse) {
	var owner models.DocumentOwner
	if v := r.URL.Query().Get("tender_id"); v != "" {
		owner.TenderID = &v
	}
	if v := r.URL.Query().Get("bid_id"); v != "" {
		owner.BidID = &v
	}
	if owner.TenderID == nil && owner.BidID == nil {
		return owner, models.ValidationError("tender_id or bid_id query parameter is required")
	}
	if owner.TenderID != nil && owner.BidID != nil {
		return owner, models.ValidationError("tender_id and bid_id are mutually exclusive")
	}
	return owner, nil
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Println(err)
		utils.SendError(w, errorResponse)
		return
	}
	h.Logger.Println(err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, fallback)
}
