package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Store - контентно-адресуемое хранилище байтов документов.
// Локатор определяется содержимым, перезапись невозможна.
type Store interface {
	Store(ctx context.Context, data []byte) (contentHash, locator string, err error)
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// FileStore - реализация Store поверх локальной файловой системы.
type FileStore struct {
	dir string
}

// NewFileStore создаёт новый экземпляр FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// HashBytes возвращает SHA-256 дайджест содержимого в hex.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store сохраняет содержимое под его дайджестом. Повторное сохранение того же
// содержимого возвращает прежний локатор.
func (s *FileStore) Store(_ context.Context, data []byte) (string, string, error) {
	contentHash := HashBytes(data)
	subdir := filepath.Join(s.dir, contentHash[:2])
	locator := filepath.Join(subdir, contentHash)

	if _, err := os.Stat(locator); err == nil {
		return contentHash, locator, nil
	}

	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create storage subdir: %w", err)
	}
	if err := os.WriteFile(locator, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write object: %w", err)
	}
	return contentHash, locator, nil
}

// Fetch читает содержимое по локатору.
func (s *FileStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}
