package models

// Actor - явная идентичность вызывающего, передаётся параметром в каждый
// вызов сервисов вместо глобального состояния запроса.
type Actor struct {
	UserID    string
	CompanyID string
}

// AwardRequest представляет запрос на присуждение тендера.
type AwardRequest struct {
	WinningBidID  string `json:"winningBidId"`
	Justification string `json:"justification"`
}

// AwardResult - итог присуждения: ссылка в реестре и финальные снимки сущностей.
type AwardResult struct {
	LedgerRef string  `json:"ledgerRef"`
	DataHash  string  `json:"dataHash"`
	Tender    *Tender `json:"tender"`
	Bids      []Bid   `json:"bids"`
}

// AwardVerification - результат сверки локальных данных присуждения
// с внешним реестром.
type AwardVerification struct {
	TenderID     string `json:"tenderId"`
	Verified     bool   `json:"verified"`
	DataHash     string `json:"dataHash,omitempty"`
	LedgerRef    string `json:"ledgerRef,omitempty"`
	WinningBidID string `json:"winningBidId,omitempty"`
}
