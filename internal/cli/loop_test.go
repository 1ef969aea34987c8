package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"radio-activator/internal/ledger"
	"radio-activator/internal/store"
)

// mockRunner stands in for the workflow engine.
type mockRunner struct {
	runs    []string
	runFunc func(radioID string) error
}

func (m *mockRunner) Run(ctx context.Context, radioID string) error {
	m.runs = append(m.runs, radioID)
	if m.runFunc != nil {
		return m.runFunc(radioID)
	}
	return nil
}

func newLoopFixture(t *testing.T, input string) (*Prompter, store.Store, ledger.Ledger) {
	t.Helper()
	dir := t.TempDir()
	s := store.Open(filepath.Join(dir, "config.json"), zap.NewNop())
	l := ledger.Open(filepath.Join(dir, "activation_log.json"), zap.NewNop())
	p := NewPrompter(strings.NewReader(input), &bytes.Buffer{}, s, l)
	return p, s, l
}

func TestRunLoop_FreshStoreAddAndActivate(t *testing.T) {
	// Empty store: the loop falls through to adding a configuration,
	// then runs the workflow for it once.
	p, s, l := newLoopFixture(t, "ABC1\nFord\nF150\n2020\n\n")
	runner := &mockRunner{runFunc: func(radioID string) error {
		return l.MarkActivated(radioID, "2026-08-30T10:00:00Z")
	}}

	err := RunLoop(context.Background(), runner, p, l, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"ABC1"}, runner.runs)
	require.Len(t, s.Configurations(), 1)

	activated, last := l.IsActivated("ABC1")
	assert.True(t, activated)
	assert.Equal(t, "2026-08-30T10:00:00Z", last)
}

func TestRunLoop_WorkflowFailureReturnsToSelection(t *testing.T) {
	p, s, l := newLoopFixture(t, "1\n\n1\n\n")
	_, err := s.Add("ABC1", "Ford", "F150", "2020")
	require.NoError(t, err)

	runner := &mockRunner{runFunc: func(string) error {
		return errors.New("step UpdateDeviceStatus: sequence value missing in response")
	}}

	err = RunLoop(context.Background(), runner, p, l, zap.NewNop())
	require.NoError(t, err, "a failed workflow is not fatal")

	// The loop came back around and ran the selection again.
	assert.Equal(t, []string{"ABC1", "ABC1"}, runner.runs)

	activated, _ := l.IsActivated("ABC1")
	assert.False(t, activated, "ledger untouched on failure")
}

func TestRunLoop_DeclinedReactivationSkipsWorkflow(t *testing.T) {
	const prior = "2026-08-29T08:00:00Z"
	p, s, l := newLoopFixture(t, "1\nn\n\n")
	_, err := s.Add("ABC1", "Ford", "F150", "2020")
	require.NoError(t, err)
	require.NoError(t, l.MarkActivated("ABC1", prior))

	runner := &mockRunner{}
	err = RunLoop(context.Background(), runner, p, l, zap.NewNop())
	require.NoError(t, err)

	assert.Empty(t, runner.runs, "declining must not run any workflow step")

	activated, last := l.IsActivated("ABC1")
	assert.True(t, activated)
	assert.Equal(t, prior, last, "ledger entry unchanged")
}

func TestRunLoop_ForcedReactivationRuns(t *testing.T) {
	p, s, l := newLoopFixture(t, "1\ny\n\n")
	_, err := s.Add("ABC1", "Ford", "F150", "2020")
	require.NoError(t, err)
	require.NoError(t, l.MarkActivated("ABC1", "2026-08-29T08:00:00Z"))

	runner := &mockRunner{}
	err = RunLoop(context.Background(), runner, p, l, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"ABC1"}, runner.runs)
}

func TestRunLoop_CancelledContextExitsCleanly(t *testing.T) {
	p, _, l := newLoopFixture(t, "1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunLoop(ctx, &mockRunner{}, p, l, zap.NewNop())
	require.NoError(t, err)
}

func TestRunLoop_InterruptWhileBlockedAtPromptExits(t *testing.T) {
	// Input that never delivers a line, like a terminal where the
	// operator hits Ctrl+C instead of typing.
	pr, _ := io.Pipe()
	dir := t.TempDir()
	s := store.Open(filepath.Join(dir, "config.json"), zap.NewNop())
	l := ledger.Open(filepath.Join(dir, "activation_log.json"), zap.NewNop())
	p := NewPrompter(pr, &bytes.Buffer{}, s, l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunLoop(ctx, &mockRunner{}, p, l, zap.NewNop())
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err, "an interrupt mid-prompt is a clean exit")
	case <-time.After(time.Second):
		t.Fatal("selection loop still blocked after cancellation")
	}
}
