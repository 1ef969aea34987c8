package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"radio-activator/internal/ledger"
)

// WorkflowRunner executes the full activation sequence for one radio.
// Satisfied by *workflow.Engine.
type WorkflowRunner interface {
	Run(ctx context.Context, radioID string) error
}

// RunLoop drives selection cycles until the input ends or ctx is
// cancelled by an operator interrupt, including while a prompt read is
// blocked. Workflow failures return control to the selection prompt;
// nothing here is fatal.
func RunLoop(ctx context.Context, runner WorkflowRunner, p *Prompter, l ledger.Ledger, logger *zap.Logger) error {
	for {
		if ctx.Err() != nil {
			fmt.Fprintln(p.out, "\nExiting...")
			return nil
		}

		selected, err := p.SelectConfiguration(ctx)
		if err != nil {
			if exitRequested(err) {
				fmt.Fprintln(p.out, "\nExiting...")
				return nil
			}
			return err
		}
		fmt.Fprintf(p.out, "Selected configuration: %s %s (%s) - Radio ID: %s\n",
			selected.Make, selected.Model, selected.Year, selected.RadioID)

		if activated, lastActivated := l.IsActivated(selected.RadioID); activated {
			proceed, err := p.ConfirmReactivation(ctx, selected.RadioID, lastActivated)
			if err != nil {
				return loopExitErr(err)
			}
			if !proceed {
				// Declining skips the whole sequence: no network calls,
				// ledger untouched.
				fmt.Fprintln(p.out, "Activation skipped.")
				if err := p.WaitForEnter(ctx, "Press enter to return to configuration selection..."); err != nil {
					return loopExitErr(err)
				}
				continue
			}
		}

		fmt.Fprintln(p.out, "Starting the activation workflow...")
		if err := runner.Run(ctx, selected.RadioID); err != nil {
			fmt.Fprintf(p.out, "Workflow terminated due to error: %v\n", err)
			logger.Error("workflow failed",
				zap.String("radio_id", selected.RadioID), zap.Error(err))
		} else {
			fmt.Fprintln(p.out, "Activation completed successfully.")
		}

		if err := p.WaitForEnter(ctx, "Press enter to return to configuration selection (or Ctrl+C to exit)..."); err != nil {
			return loopExitErr(err)
		}
	}
}

// exitRequested reports whether the operator is done: input ended, or the
// interrupt fired while a prompt was waiting.
func exitRequested(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

// loopExitErr treats an exit request as a clean return.
func loopExitErr(err error) error {
	if exitRequested(err) {
		return nil
	}
	return err
}
