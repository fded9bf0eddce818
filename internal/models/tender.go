package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	TenderCategory string // Категория закупки
	TenderStatus   string // Статус тендера
)

const (
	Construction TenderCategory = "Construction"
	Delivery     TenderCategory = "Delivery"
	Manufacture  TenderCategory = "Manufacture"

	DraftTender      TenderStatus = "draft"      // Тендер создан как черновик
	PublishedTender  TenderStatus = "published"  // Тендер опубликован
	OpenTender       TenderStatus = "open"       // Тендер принимает предложения
	EvaluationTender TenderStatus = "evaluation" // Предложения оцениваются
	ClosedTender     TenderStatus = "closed"     // Приём предложений закрыт
	AwardedTender    TenderStatus = "awarded"    // Тендер присуждён, терминальный статус
	CancelledTender  TenderStatus = "cancelled"  // Тендер отменён, терминальный статус
)

// Tender представляет модель тендера.
type Tender struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           TenderCategory  `json:"category"`
	Budget             decimal.Decimal `json:"budget"`
	Requirements       string          `json:"requirements"`
	SubmissionDeadline time.Time       `json:"submissionDeadline"`
	Status             TenderStatus    `json:"status"`
	AuthorityID        string          `json:"authorityId"`
	WinningBidID       *string         `json:"winningBidId,omitempty"`
	AwardJustification *string         `json:"awardJustification,omitempty"`
	AwardDataHash      *string         `json:"awardDataHash,omitempty"`
	AwardLedgerRef     *string         `json:"awardLedgerRef,omitempty"`
	CancellationReason *string         `json:"cancellationReason,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TenderRequest представляет структуру запроса для создания тендера.
type TenderRequest struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           TenderCategory  `json:"category"`
	Budget             decimal.Decimal `json:"budget"`
	Requirements       string          `json:"requirements"`
	SubmissionDeadline time.Time       `json:"submissionDeadline"`
}

// TenderUpdate представляет структуру запроса для изменения полей тендера.
// Изменение разрешено только в статусах draft и published.
type TenderUpdate struct {
	Title              *string          `json:"title,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Category           *TenderCategory  `json:"category,omitempty"`
	Budget             *decimal.Decimal `json:"budget,omitempty"`
	Requirements       *string          `json:"requirements,omitempty"`
	SubmissionDeadline *time.Time       `json:"submissionDeadline,omitempty"`
}

// TenderStatusUpdate представляет запрос на смену статуса тендера.
// Для перехода в cancelled поле Reason обязательно.
type TenderStatusUpdate struct {
	Status TenderStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}
