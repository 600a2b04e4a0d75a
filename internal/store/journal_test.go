package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDigestDomainSeparation(t *testing.T) {
	data := []byte("{}\n")
	assert.Len(t, Digest(DomainRegistry, data), 64)
	assert.Equal(t, Digest(DomainRegistry, data), Digest(DomainRegistry, data))
	assert.NotEqual(t, Digest(DomainRegistry, data), Digest(DomainFlow, data))
	assert.NotEqual(t, Digest(DomainRegistry, data), Digest(DomainRegistry, []byte("{}")))
}

func TestRecordAndLatest(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoCompiles)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &Compile{
		SpecPath:       "specs/my_table.yaml",
		Tables:         []string{"MY_TABLE"},
		RegistrySHA256: Digest(DomainRegistry, []byte("a")),
		FlowSHA256:     Digest(DomainFlow, []byte("a")),
		EntryCount:     3,
		RepairCount:    5,
		CompiledAt:     at,
	}
	require.NoError(t, s.Record(ctx, first))
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, int64(1), first.Seq)

	second := &Compile{
		RunID:          "run-2",
		SpecPath:       "specs/orders.yaml",
		Tables:         []string{"MY_TABLE", "ORDERS"},
		RegistrySHA256: Digest(DomainRegistry, []byte("b")),
		FlowSHA256:     Digest(DomainFlow, []byte("b")),
		EntryCount:     5,
		CompiledAt:     at.Add(-time.Hour), // wall clock is not the order
	}
	require.NoError(t, s.Record(ctx, second))

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, []string{"MY_TABLE", "ORDERS"}, latest.Tables)
	assert.Equal(t, second.RegistrySHA256, latest.RegistrySHA256)
	assert.True(t, latest.CompiledAt.Equal(at.Add(-time.Hour)))
}

func TestRecordRejectsDuplicateRunID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	c := &Compile{RunID: "same", SpecPath: "p", Tables: []string{}, CompiledAt: time.Now()}
	require.NoError(t, s.Record(ctx, c))
	dup := *c
	assert.Error(t, s.Record(ctx, &dup))
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, &Compile{RunID: id, SpecPath: "p", Tables: []string{"T"}, CompiledAt: time.Now()}))
	}

	history, err := s.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].RunID)
	assert.Equal(t, "b", history[1].RunID)
}
