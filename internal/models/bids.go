package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string // Статус предложения

const (
	SubmittedBid   BidStatus = "submitted"    // Предложение подано
	UnderReviewBid BidStatus = "under_review" // Предложение рассматривается
	AcceptedBid    BidStatus = "accepted"     // Предложение принято, терминальный статус
	RejectedBid    BidStatus = "rejected"     // Предложение отклонено, терминальный статус
	WithdrawnBid   BidStatus = "withdrawn"    // Предложение отозвано, терминальный статус
)

// Bid представляет модель предложения по тендеру.
type Bid struct {
	ID               string          `json:"id"`
	TenderID         string          `json:"tenderId"`
	CompanyID        string          `json:"companyId"`
	Amount           decimal.Decimal `json:"amount"`
	Proposal         string          `json:"proposal"`
	DeliveryDays     int             `json:"deliveryDays"`
	Status           BidStatus       `json:"status"`
	WithdrawalReason *string         `json:"withdrawalReason,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// BidRequest представляет структуру запроса для подачи предложения.
type BidRequest struct {
	TenderID     string          `json:"tenderId"`
	Amount       decimal.Decimal `json:"amount"`
	Proposal     string          `json:"proposal"`
	DeliveryDays int             `json:"deliveryDays"`
}

// BidRevisionRequest представляет запрос на пересмотр предложения.
// Хотя бы одно из полей должно отличаться от текущих значений.
type BidRevisionRequest struct {
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Proposal     *string          `json:"proposal,omitempty"`
	DeliveryDays *int             `json:"deliveryDays,omitempty"`
}

// BidRevision представляет неизменяемый снимок предыдущих значений предложения.
// История пересмотров только дописывается и никогда не сокращается.
type BidRevision struct {
	ID           string          `json:"id"`
	BidID        string          `json:"bidId"`
	Amount       decimal.Decimal `json:"amount"`
	Proposal     string          `json:"proposal"`
	DeliveryDays int             `json:"deliveryDays"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// BidWithdrawal представляет запрос на отзыв предложения.
type BidWithdrawal struct {
	Reason string `json:"reason"`
}
