package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSuccessIncrementsCount(t *testing.T) {
	store := &fakeLedger{}
	ledger := NewExecutionLedger(store, fixedClock)

	entry, err := ledger.RecordSuccess(context.Background(), Rule{ID: "recRule1", ExecutionCount: 5})
	require.NoError(t, err)

	assert.Equal(t, 6, entry.ExecutionCount)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), entry.LastExecuted)
	assert.Equal(t, "2025-03-14", entry.LastExecuted.Format(DateLayout))
	assert.Equal(t, []LedgerEntry{entry}, store.entries)
}

func TestRecordSuccessPropagatesStoreError(t *testing.T) {
	ledger := NewExecutionLedger(&fakeLedger{err: errStoreDown}, fixedClock)
	_, err := ledger.RecordSuccess(context.Background(), Rule{ID: "recRule1"})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestTodayUsesUTCDate(t *testing.T) {
	rome := time.FixedZone("CET", 3600)
	late := time.Date(2025, 1, 1, 0, 30, 0, 0, rome)
	assert.Equal(t, "2024-12-31", Today(late).Format(DateLayout))
}
