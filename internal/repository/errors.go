package repository

import "errors"

var (
	// ErrNotFound возвращается, когда сущность отсутствует.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict возвращается, когда оптимистическая проверка версии
	// не прошла: сущность изменена другим вызовом. Запрос можно повторить.
	ErrVersionConflict = errors.New("version conflict")

	// ErrTenderNotOpen возвращается, когда вставка предложения не прошла
	// охранное условие: тендер перестал принимать предложения между
	// проверкой статуса и записью.
	ErrTenderNotOpen = errors.New("tender is not open for bids")
)
