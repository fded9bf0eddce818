package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// notaryStub повторяет контракт внешнего реестра: одна запись на тендер,
// 409 с существующей ссылкой на повторе.
type notaryStub struct {
	mu      sync.Mutex
	records map[string]Record
}

func newNotaryStub() *notaryStub {
	return &notaryStub{records: make(map[string]Record)}
}

func (s *notaryStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /awards", func(w http.ResponseWriter, r *http.Request) {
		var record Record
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.records[record.TenderID]; ok {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(existing)
			return
		}
		record.Reference = "chain-0001"
		record.RecordedAt = time.Now().UTC()
		s.records[record.TenderID] = record
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(record)
	})
	mux.HandleFunc("GET /awards/{tenderId}/verify", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		record, ok := s.records[r.PathValue("tenderId")]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{
			"verified": record.DataHash == r.URL.Query().Get("hash"),
		})
	})
	mux.HandleFunc("GET /awards/{tenderId}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		record, ok := s.records[r.PathValue("tenderId")]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(record)
	})
	return mux
}

func TestHTTPNotaryRecordVerifyGet(t *testing.T) {
	server := httptest.NewServer(newNotaryStub().handler())
	defer server.Close()

	notary := NewHTTPNotary(server.URL, 5*time.Second)
	ctx := context.Background()

	ref, err := notary.RecordAward(ctx, Record{TenderID: "t-1", DataHash: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, "chain-0001", ref)

	ok, err := notary.Verify(ctx, "t-1", "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = notary.Verify(ctx, "t-1", "0xtampered")
	require.NoError(t, err)
	assert.False(t, ok)

	record, err := notary.GetAward(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "chain-0001", record.Reference)
}

func TestHTTPNotaryConflictMapsToAlreadyRecorded(t *testing.T) {
	server := httptest.NewServer(newNotaryStub().handler())
	defer server.Close()

	notary := NewHTTPNotary(server.URL, 5*time.Second)
	ctx := context.Background()

	ref, err := notary.RecordAward(ctx, Record{TenderID: "t-1", DataHash: "0xabc"})
	require.NoError(t, err)

	_, err = notary.RecordAward(ctx, Record{TenderID: "t-1", DataHash: "0xabc"})
	var already *AlreadyRecordedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, ref, already.Reference)
}

func TestHTTPNotaryNotFound(t *testing.T) {
	server := httptest.NewServer(newNotaryStub().handler())
	defer server.Close()

	notary := NewHTTPNotary(server.URL, 5*time.Second)

	_, err := notary.Verify(context.Background(), "missing", "0xabc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHTTPNotaryTransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(newNotaryStub().handler())
	server.Close()

	notary := NewHTTPNotary(server.URL, time.Second)

	_, err := notary.RecordAward(context.Background(), Record{TenderID: "t-1"})
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestHTTPNotaryServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notary := NewHTTPNotary(server.URL, time.Second)

	_, err := notary.RecordAward(context.Background(), Record{TenderID: "t-1"})
	assert.True(t, errors.Is(err, ErrUnavailable))
}
