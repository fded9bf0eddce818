package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPNotary - клиент внешнего сервиса-нотариуса поверх HTTP.
// Все вызовы ограничены таймаутом; таймаут трактуется вызывающим как
// недоступность реестра без частичной фиксации.
type HTTPNotary struct {
	baseURL string
	client  *http.Client
}

// NewHTTPNotary создаёт новый экземпляр HTTPNotary.
func NewHTTPNotary(baseURL string, timeout time.Duration) *HTTPNotary {
	return &HTTPNotary{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// RecordAward отправляет запись присуждения. Ответ 409 означает, что
// присуждение по этому тендеру уже зафиксировано.
func (n *HTTPNotary) RecordAward(ctx context.Context, record Record) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/awards", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out Record
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return out.Reference, nil
	case http.StatusConflict:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return "", &AlreadyRecordedError{Reference: out.Reference}
	default:
		return "", fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}

// Verify сверяет хеш с записью реестра по тендеру.
func (n *HTTPNotary) Verify(ctx context.Context, tenderID, dataHash string) (bool, error) {
	endpoint := fmt.Sprintf("%s/awards/%s/verify?hash=%s", n.baseURL, url.PathEscape(tenderID), url.QueryEscape(dataHash))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var out struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.Verified, nil
}

// GetAward возвращает запись присуждения по тендеру.
func (n *HTTPNotary) GetAward(ctx context.Context, tenderID string) (*Record, error) {
	endpoint := fmt.Sprintf("%s/awards/%s", n.baseURL, url.PathEscape(tenderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var out Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &out, nil
}
