package inmem

import (
	"errors"
	"testing"
	"time"

	"github.com/igolaizola/sigtrader/pkg/record"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	var s Store
	a := &record.Record{ChatID: 1, MessageID: 5, Symbol: "EURUSD", Time: time.Now()}
	b := &record.Record{ChatID: 1, MessageID: 6, Symbol: "GBPUSD", Time: time.Now()}
	require.NoError(t, s.Create(a))
	require.NoError(t, s.Create(b))

	last, err := s.Last(1)
	require.NoError(t, err)
	require.Equal(t, "GBPUSD", last.Symbol)

	// Mutating a returned record doesn't touch the store
	last.Symbol = "changed"
	got, err := s.ByMessage(1, 6)
	require.NoError(t, err)
	require.Equal(t, "GBPUSD", got.Symbol)

	records, err := s.List(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, a.ID, records[0].ID)

	require.NoError(t, s.Delete(b))
	_, err = s.ByMessage(1, 6)
	require.True(t, errors.Is(err, record.ErrNotFound))
	require.True(t, errors.Is(s.Update(b), record.ErrNotFound))
}
