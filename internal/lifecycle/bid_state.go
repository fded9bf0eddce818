package lifecycle

import (
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
)

// Допустимые переходы статусов предложения.
// accepted, rejected и withdrawn терминальны.
var bidTransitions = map[models.BidStatus][]models.BidStatus{
	models.SubmittedBid:   {models.UnderReviewBid, models.AcceptedBid, models.RejectedBid, models.WithdrawnBid},
	models.UnderReviewBid: {models.AcceptedBid, models.RejectedBid, models.WithdrawnBid},
	models.AcceptedBid:    {},
	models.RejectedBid:    {},
	models.WithdrawnBid:   {},
}

// CanTransitionBid проверяет допустимость перехода статуса предложения.
func CanTransitionBid(from, to models.BidStatus) bool {
	for _, allowed := range bidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateBidTransition возвращает nil, если переход разрешён.
func ValidateBidTransition(from, to models.BidStatus) *models.ErrorResponse {
	if !CanTransitionBid(from, to) {
		return models.InvalidTransition(
			fmt.Sprintf("cannot transition bid from '%s' to '%s'", from, to))
	}
	return nil
}

// IsTerminalBid проверяет, является ли статус предложения терминальным.
func IsTerminalBid(status models.BidStatus) bool {
	return status == models.AcceptedBid || status == models.RejectedBid || status == models.WithdrawnBid
}

// CanMutateBid проверяет, можно ли пересмотреть или отозвать предложение.
// Требуются нетерминальный статус предложения, статус тендера open или
// evaluation и момент строго до дедлайна подачи. Любая неоднозначность
// трактуется как запрет.
func CanMutateBid(bidStatus models.BidStatus, tenderStatus models.TenderStatus, deadline, now time.Time) bool {
	if IsTerminalBid(bidStatus) {
		return false
	}
	if !CanReviseBids(tenderStatus) {
		return false
	}
	return now.Before(deadline)
}

// EligibleForAward проверяет, может ли предложение быть выбрано победителем.
// Отозванные предложения исключаются из присуждения.
func EligibleForAward(status models.BidStatus) bool {
	return status != models.WithdrawnBid
}
