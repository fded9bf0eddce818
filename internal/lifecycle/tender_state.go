package lifecycle

import (
	"fmt"

	"github.com/senyabanana/procurement-service/internal/models"
)

// Допустимые переходы статусов тендера. awarded и cancelled терминальны.
var tenderTransitions = map[models.TenderStatus][]models.TenderStatus{
	models.DraftTender:      {models.PublishedTender, models.CancelledTender},
	models.PublishedTender:  {models.OpenTender, models.CancelledTender},
	models.OpenTender:       {models.EvaluationTender, models.ClosedTender, models.CancelledTender},
	models.EvaluationTender: {models.AwardedTender, models.CancelledTender},
	models.ClosedTender:     {models.AwardedTender, models.CancelledTender},
	models.AwardedTender:    {},
	models.CancelledTender:  {},
}

// CanTransitionTender проверяет допустимость перехода статуса тендера.
func CanTransitionTender(from, to models.TenderStatus) bool {
	for _, allowed := range tenderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTenderTransition валидирует переход и обязательность причины отмены.
// Возвращает nil, если переход разрешён.
func ValidateTenderTransition(from, to models.TenderStatus, reason string) *models.ErrorResponse {
	if !CanTransitionTender(from, to) {
		return models.InvalidTransition(
			fmt.Sprintf("cannot transition tender from '%s' to '%s'", from, to))
	}
	if to == models.CancelledTender && reason == "" {
		return models.ValidationError("cancellation requires a reason")
	}
	return nil
}

// IsTerminalTender проверяет, является ли статус терминальным.
func IsTerminalTender(status models.TenderStatus) bool {
	return status == models.AwardedTender || status == models.CancelledTender
}

// CanReceiveBids проверяет, принимает ли тендер новые предложения.
func CanReceiveBids(status models.TenderStatus) bool {
	return status == models.OpenTender
}

// CanReceiveQuestions проверяет, открыт ли тендер для вопросов поставщиков.
func CanReceiveQuestions(status models.TenderStatus) bool {
	return status == models.PublishedTender || status == models.OpenTender
}

// CanEditTender проверяет, можно ли менять поля тендера в текущем статусе.
func CanEditTender(status models.TenderStatus) bool {
	return status == models.DraftTender || status == models.PublishedTender
}

// CanReviseBids проверяет, допускает ли статус тендера пересмотр
// и отзыв уже поданных предложений.
func CanReviseBids(status models.TenderStatus) bool {
	return status == models.OpenTender || status == models.EvaluationTender
}

// CanAwardTender проверяет, допускает ли статус тендера присуждение.
// evaluation и closed равнозначны для права присуждения.
func CanAwardTender(status models.TenderStatus) bool {
	return status == models.EvaluationTender || status == models.ClosedTender
}
