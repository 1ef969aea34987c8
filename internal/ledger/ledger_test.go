package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLedger(t *testing.T) (Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activation_log.json")
	return Open(path, zap.NewNop()), path
}

func TestIsActivated_UnknownRadio(t *testing.T) {
	l, _ := newTestLedger(t)

	activated, last := l.IsActivated("ABC1")
	assert.False(t, activated)
	assert.Equal(t, "unknown", last)
}

func TestMarkActivated_ReadAfterWrite(t *testing.T) {
	l, path := newTestLedger(t)

	const ts = "2026-08-30T12:00:00Z"
	require.NoError(t, l.MarkActivated("ABC1", ts))

	activated, last := l.IsActivated("ABC1")
	assert.True(t, activated)
	assert.Equal(t, ts, last)

	// Reloading from disk must yield the same entry.
	reloaded := Open(path, zap.NewNop())
	activated, last = reloaded.IsActivated("ABC1")
	assert.True(t, activated)
	assert.Equal(t, ts, last)
}

func TestMarkActivated_OverwritesTimestamp(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.MarkActivated("ABC1", "2026-08-29T08:00:00Z"))
	require.NoError(t, l.MarkActivated("ABC1", "2026-08-30T09:30:00Z"))

	records := l.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "2026-08-30T09:30:00Z", records["ABC1"].LastActivated)
}

func TestOpen_CorruptFileFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activation_log.json")
	require.NoError(t, os.WriteFile(path, []byte("][not json"), 0o644))

	l := Open(path, zap.NewNop())
	assert.Empty(t, l.Records())
}

func TestMarkActivated_UnwritablePathKeepsInMemoryState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "activation_log.json")
	l := Open(path, zap.NewNop())

	err := l.MarkActivated("ABC1", "2026-08-30T09:30:00Z")
	assert.Error(t, err)

	// The in-memory entry stays authoritative for the rest of the run.
	activated, last := l.IsActivated("ABC1")
	assert.True(t, activated)
	assert.Equal(t, "2026-08-30T09:30:00Z", last)
}

func TestMarkActivated_WriteFailureIsReportedNotLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	path := filepath.Join(t.TempDir(), "missing-dir", "activation_log.json")
	l := Open(path, zap.New(core))

	err := l.MarkActivated("ABC1", "2026-08-30T09:30:00Z")
	assert.Error(t, err)

	// The caller owns the warning; the ledger must not log it as well.
	assert.Empty(t, logs.All())
}
