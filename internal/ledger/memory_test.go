package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryNotaryRecordAndVerify(t *testing.T) {
	notary := NewInMemoryNotary()
	ctx := context.Background()

	ref, err := notary.RecordAward(ctx, Record{
		TenderID:     "t-1",
		WinningBidID: "b-1",
		DataHash:     "0xabc",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 1, notary.Len())

	ok, err := notary.Verify(ctx, "t-1", "0xabc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = notary.Verify(ctx, "t-1", "0xother")
	require.NoError(t, err)
	assert.False(t, ok)

	record, err := notary.GetAward(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, ref, record.Reference)
	assert.False(t, record.RecordedAt.IsZero())
}

func TestInMemoryNotaryIdempotentPerTender(t *testing.T) {
	notary := NewInMemoryNotary()
	ctx := context.Background()

	ref, err := notary.RecordAward(ctx, Record{TenderID: "t-1", DataHash: "0xabc"})
	require.NoError(t, err)

	_, err = notary.RecordAward(ctx, Record{TenderID: "t-1", DataHash: "0xdef"})
	var already *AlreadyRecordedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, ref, already.Reference)
	assert.Equal(t, 1, notary.Len())
}

func TestInMemoryNotaryUnknownTender(t *testing.T) {
	notary := NewInMemoryNotary()
	ctx := context.Background()

	_, err := notary.Verify(ctx, "missing", "0xabc")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = notary.GetAward(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInMemoryNotaryFailNext(t *testing.T) {
	notary := NewInMemoryNotary()
	notary.FailNext = true
	ctx := context.Background()

	_, err := notary.RecordAward(ctx, Record{TenderID: "t-1"})
	assert.True(t, errors.Is(err, ErrUnavailable))

	// Следующая попытка проходит.
	_, err = notary.RecordAward(ctx, Record{TenderID: "t-1"})
	require.NoError(t, err)
}
