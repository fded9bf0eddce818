package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/senyabanana/procurement-service/internal/models"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, code models.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := models.ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Println(err)
	}
}

// SendError отправляет готовый ErrorResponse.
func SendError(w http.ResponseWriter, errorResponse *models.ErrorResponse) {
	SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Code, errorResponse.Message)
}

// SendJSON отправляет ответ в формате JSON с указанным статусом.
func SendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println(err)
	}
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// GetActor извлекает идентичность вызывающего из заголовков запроса.
// X-User-Id обязателен, X-Company-Id пуст для пользователей без компании.
func GetActor(r *http.Request) (models.Actor, *models.ErrorResponse) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		return models.Actor{}, models.NewErrorResponse(
			http.StatusUnauthorized, models.CodeForbidden, "X-User-Id header is required")
	}
	return models.Actor{
		UserID:    userID,
		CompanyID: r.Header.Get("X-Company-Id"),
	}, nil
}
