package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"radio-activator/config"
	"radio-activator/internal/client"
	"radio-activator/internal/ledger"
)

// Step-failure errors for responses that arrived but lack a required field.
var (
	ErrAuthenticationFailed = errors.New("authentication token missing in response")
	ErrSequenceMissing      = errors.New("sequence value missing in response")
)

// Session holds the values threaded between workflow steps. It is built
// fresh for every run and never persisted.
type Session struct {
	AuthToken     string
	SequenceValue string
}

// Doer issues a single vendor request. Satisfied by *client.Client.
type Doer interface {
	Do(ctx context.Context, method, rawURL string, opts client.RequestOptions) (*client.Response, error)
}

// AttemptRecorder archives the outcome of one workflow run. runErr is nil
// and failedStep empty for a successful run.
type AttemptRecorder interface {
	Record(ctx context.Context, radioID string, startedAt, finishedAt time.Time, failedStep string, runErr error) error
}

// Engine executes the fixed activation sequence for one radio at a time.
// On full success it commits the ledger entry; any step failure aborts the
// remaining steps with no ledger write.
type Engine struct {
	cfg      *config.Config
	client   Doer
	ledger   ledger.Ledger
	history  AttemptRecorder
	logger   *zap.Logger
	deviceID string
	now      func() time.Time
}

// New creates a workflow engine. history may be nil if attempt archiving
// is disabled.
func New(cfg *config.Config, c Doer, l ledger.Ledger, history AttemptRecorder, deviceID string, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		client:   c,
		ledger:   l,
		history:  history,
		logger:   logger,
		deviceID: deviceID,
		now:      time.Now,
	}
}

// Run executes all ten steps in order for radioID. The session is
// reconstructed per run so no auth token or sequence value leaks between
// runs.
func (e *Engine) Run(ctx context.Context, radioID string) error {
	sess := &Session{}
	startedAt := e.now()

	var runErr error
	var failedStep string
	for _, step := range Steps(e.cfg) {
		if err := e.runStep(ctx, step, radioID, sess); err != nil {
			failedStep = step.Name
			runErr = fmt.Errorf("step %s: %w", step.Name, err)
			e.logger.Error("workflow aborted",
				zap.String("radio_id", radioID), zap.String("step", step.Name), zap.Error(err))
			break
		}
	}
	finishedAt := e.now()

	if e.history != nil {
		if err := e.history.Record(ctx, radioID, startedAt, finishedAt, failedStep, runErr); err != nil {
			e.logger.Warn("failed to archive activation attempt",
				zap.String("radio_id", radioID), zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}

	timestamp := finishedAt.Format(time.RFC3339)
	if err := e.ledger.MarkActivated(radioID, timestamp); err != nil {
		// Write failure is non-fatal; the in-memory ledger stays
		// authoritative for the rest of the run.
		e.logger.Warn("activation succeeded but ledger write failed",
			zap.String("radio_id", radioID), zap.Error(err))
	}
	e.logger.Info("activation workflow completed",
		zap.String("radio_id", radioID), zap.String("last_activated", timestamp))
	return nil
}

func (e *Engine) runStep(ctx context.Context, step Step, radioID string, sess *Session) error {
	// Step ordering guarantees the sequence value is set by the time any
	// step needs it, but the table makes the dependency explicit rather
	// than relying on call order.
	if step.RequiresSequence && sess.SequenceValue == "" {
		return fmt.Errorf("precondition: %w", ErrSequenceMissing)
	}

	in := StepInput{RadioID: radioID, DeviceID: e.deviceID, Session: sess}
	resp, err := e.client.Do(ctx, http.MethodPost, step.URL, client.RequestOptions{
		Headers:   step.Headers,
		Form:      step.Body(in),
		Query:     step.Query,
		AuthToken: sess.AuthToken,
	})
	if err != nil {
		return err
	}

	e.logger.Debug("step response",
		zap.String("step", step.Name), zap.ByteString("body", resp.Body))

	if step.Extract != nil {
		return step.Extract(resp.Body, sess)
	}
	return nil
}
