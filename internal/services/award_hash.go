package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// awardPayload - каноническая форма данных присуждения для хеширования.
// Поля упорядочены лексикографически, сериализация детерминирована.
type awardPayload struct {
	Amount             string `json:"amount"`
	AwardJustification string `json:"awardJustification"`
	TenderID           string `json:"tenderId"`
	WinningBidID       string `json:"winningBidId"`
	WinningCompanyID   string `json:"winningCompanyId"`
}

// ComputeAwardHash считает SHA-256 дайджест канонической сериализации данных
// присуждения. Тот же набор аргументов всегда даёт тот же хеш - на этом
// строится внешняя верификация записи реестра.
func ComputeAwardHash(tenderID, winningBidID, winningCompanyID string, amount decimal.Decimal, justification string) string {
	payload := awardPayload{
		Amount:             amount.String(),
		AwardJustification: justification,
		TenderID:           tenderID,
		WinningBidID:       winningBidID,
		WinningCompanyID:   winningCompanyID,
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(sum[:])
}
