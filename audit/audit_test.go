package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dooropener/state"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := int32(42)

	require.NoError(t, s.Record(ctx, Entry{CycleID: "a", TagUID: "04AA", Outcome: state.NFCError, Detail: "truncated", At: base}))
	require.NoError(t, s.Record(ctx, Entry{CycleID: "b", TagUID: "04BB", PassportID: &id, Outcome: state.Valid, At: base.Add(time.Minute)}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].CycleID)
	require.NotNil(t, got[0].PassportID)
	assert.EqualValues(t, 42, *got[0].PassportID)
	assert.Equal(t, state.Valid, got[0].Outcome)
	assert.Equal(t, base.Add(time.Minute), got[0].At)

	assert.Equal(t, "a", got[1].CycleID)
	assert.Nil(t, got[1].PassportID)
	assert.Equal(t, "truncated", got[1].Detail)

	got, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordDuplicateCycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Entry{CycleID: "a", Outcome: state.Invalid}))
	assert.Error(t, s.Record(ctx, Entry{CycleID: "a", Outcome: state.Invalid}))
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Entry{CycleID: "a", Outcome: state.NetError}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, state.NetError, got[0].Outcome)
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0007_add_index.sql")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = parseVersion("init.sql")
	assert.Error(t, err)
}
