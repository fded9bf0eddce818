package models

import "net/http"

// ErrorCode классифицирует ошибку независимо от HTTP-статуса.
type ErrorCode string

const (
	CodeValidation             ErrorCode = "ValidationError"
	CodeForbidden              ErrorCode = "Forbidden"
	CodeNotFound               ErrorCode = "NotFound"
	CodeInvalidTransition      ErrorCode = "InvalidTransition"
	CodeTenderNotEditable      ErrorCode = "TenderNotEditable"
	CodeBidNotEligible         ErrorCode = "BidNotEligible"
	CodeSelfBidForbidden       ErrorCode = "SelfBidForbidden"
	CodeConcurrentModification ErrorCode = "ConcurrentModification" // безопасно повторить запрос
	CodeLedgerUnavailable      ErrorCode = "LedgerUnavailable"      // безопасно повторить запрос
	CodeIntegrityViolation     ErrorCode = "IntegrityViolation"
	CodeInternal               ErrorCode = "InternalError"
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int       `json:"-"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Конструкторы под таксономию ошибок сервиса.

func ValidationError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, CodeValidation, message)
}

func Forbidden(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

func InvalidTransition(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeInvalidTransition, message)
}

func TenderNotEditable(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeTenderNotEditable, message)
}

func BidNotEligible(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeBidNotEligible, message)
}

func SelfBidForbidden(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeSelfBidForbidden, message)
}

func ConcurrentModification(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeConcurrentModification, message)
}

func LedgerUnavailable(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, CodeLedgerUnavailable, message)
}

func IntegrityViolation(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, CodeIntegrityViolation, message)
}

func InternalError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}
