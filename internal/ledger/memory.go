package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryNotary - локальный нотариус для разработки и тестов.
// Хранит записи в памяти и повторяет идемпотентный контракт реестра.
type InMemoryNotary struct {
	mu      sync.Mutex
	records map[string]Record
	seq     int

	// FailNext заставляет следующий вызов RecordAward вернуть ErrUnavailable.
	FailNext bool
}

// NewInMemoryNotary создаёт новый экземпляр InMemoryNotary.
func NewInMemoryNotary() *InMemoryNotary {
	return &InMemoryNotary{records: make(map[string]Record)}
}

// RecordAward фиксирует присуждение; повторная запись по тому же тендеру
// возвращает *AlreadyRecordedError с прежней ссылкой.
func (n *InMemoryNotary) RecordAward(_ context.Context, record Record) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.FailNext {
		n.FailNext = false
		return "", ErrUnavailable
	}

	if existing, ok := n.records[record.TenderID]; ok {
		return "", &AlreadyRecordedError{Reference: existing.Reference}
	}

	n.seq++
	record.Reference = fmt.Sprintf("ledger-%06d", n.seq)
	record.RecordedAt = time.Now().UTC()
	n.records[record.TenderID] = record
	return record.Reference, nil
}

// Verify сверяет хеш с сохранённой записью.
func (n *InMemoryNotary) Verify(_ context.Context, tenderID, dataHash string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	record, ok := n.records[tenderID]
	if !ok {
		return false, ErrNotFound
	}
	return record.DataHash == dataHash, nil
}

// GetAward возвращает запись присуждения по тендеру.
func (n *InMemoryNotary) GetAward(_ context.Context, tenderID string) (*Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	record, ok := n.records[tenderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Len возвращает число записей в реестре.
func (n *InMemoryNotary) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.records)
}
