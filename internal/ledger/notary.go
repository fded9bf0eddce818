package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound возвращается, когда в реестре нет записи по тендеру.
var ErrNotFound = errors.New("award record not found")

// ErrUnavailable возвращается при недоступности реестра. Запись при этом
// гарантированно не создана, запрос можно безопасно повторить.
var ErrUnavailable = errors.New("ledger unavailable")

// AlreadyRecordedError сообщает, что присуждение по тендеру уже
// зафиксировано. Несёт ссылку существующей записи.
type AlreadyRecordedError struct {
	Reference string
}

func (e *AlreadyRecordedError) Error() string {
	return fmt.Sprintf("award already recorded: %s", e.Reference)
}

// Record - запись присуждения во внешнем реестре.
type Record struct {
	TenderID         string    `json:"tenderId"`
	WinningBidID     string    `json:"winningBidId"`
	WinningCompanyID string    `json:"winningCompanyId"`
	Amount           string    `json:"amount"`
	DataHash         string    `json:"dataHash"`
	Reference        string    `json:"reference,omitempty"`
	RecordedAt       time.Time `json:"recordedAt,omitempty"`
}

// Notary - интерфейс внешнего неизменяемого реестра присуждений.
// Идемпотентен по идентификатору тендера: повторная запись возвращает
// *AlreadyRecordedError с существующей ссылкой.
type Notary interface {
	RecordAward(ctx context.Context, record Record) (string, error)
	Verify(ctx context.Context, tenderID, dataHash string) (bool, error)
	GetAward(ctx context.Context, tenderID string) (*Record, error)
}
