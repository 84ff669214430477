package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridesk/internal/console/models"
)

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Add(ctx, models.Submission{Phone: "0550000000", Disposition: models.DispositionPending})
	require.NoError(t, err)

	var delivered [][]models.Submission
	unsub, err := m.Subscribe(ctx, func(records []models.Submission) {
		delivered = append(delivered, records)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, delivered, 1)
	require.Len(t, delivered[0], 1)
	assert.Equal(t, "0550000000", delivered[0][0].Phone)
}

func TestWriteNotifiesWithFullSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, models.Submission{Disposition: models.DispositionPending})
	require.NoError(t, err)
	_, err = m.Add(ctx, models.Submission{Disposition: models.DispositionPending})
	require.NoError(t, err)

	var last []models.Submission
	unsub, err := m.Subscribe(ctx, func(records []models.Submission) { last = records })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, m.Write(ctx, id, PatchDisposition(models.DispositionApproved)))

	require.Len(t, last, 2)
	assert.Equal(t, models.DispositionApproved, last[0].Disposition)
	assert.Equal(t, models.DispositionPending, last[1].Disposition)
}

func TestWriteUnknownIDReturnsNotFound(t *testing.T) {
	m := NewMemory()
	err := m.Write(context.Background(), "missing", PatchCode("1234"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchWriteIsAllOrNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.Add(ctx, models.Submission{Disposition: models.DispositionPending})
	require.NoError(t, err)
	b, err := m.Add(ctx, models.Submission{Disposition: models.DispositionPending})
	require.NoError(t, err)

	notifications := 0
	var last []models.Submission
	unsub, err := m.Subscribe(ctx, func(records []models.Submission) {
		notifications++
		last = records
	})
	require.NoError(t, err)
	defer unsub()
	require.Equal(t, 1, notifications) // initial delivery

	err = m.BatchWrite(ctx, []Update{
		{ID: a, Patch: PatchHidden(true)},
		{ID: "missing", Patch: PatchHidden(true)},
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, notifications)
	for _, r := range last {
		assert.False(t, r.Hidden)
	}

	require.NoError(t, m.BatchWrite(ctx, []Update{
		{ID: a, Patch: PatchHidden(true)},
		{ID: b, Patch: PatchHidden(true)},
	}))
	require.Equal(t, 2, notifications)
	for _, r := range last {
		assert.True(t, r.Hidden)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	notifications := 0
	unsub, err := m.Subscribe(ctx, func([]models.Submission) { notifications++ })
	require.NoError(t, err)
	require.Equal(t, 1, notifications)

	unsub()
	unsub() // double release is a no-op

	_, err = m.Add(ctx, models.Submission{})
	require.NoError(t, err)
	assert.Equal(t, 1, notifications)
}

func TestPatchLeavesOtherFieldsUntouched(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, models.Submission{
		Phone:       "0550000000",
		Code:        "1234",
		Disposition: models.DispositionPending,
		Card:        &models.CardDetails{Number: "4111111111111111", Bank: "acme"},
	})
	require.NoError(t, err)

	var last []models.Submission
	unsub, err := m.Subscribe(ctx, func(records []models.Submission) { last = records })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, m.Write(ctx, id, PatchCode("9999")))

	require.Len(t, last, 1)
	got := last[0]
	assert.Equal(t, "9999", got.Code)
	assert.Equal(t, "0550000000", got.Phone)
	assert.Equal(t, models.DispositionPending, got.Disposition)
	require.NotNil(t, got.Card)
	assert.Equal(t, "acme", got.Card.Bank)
}
