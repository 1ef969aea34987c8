package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"radio-activator/internal/ledger"
	"radio-activator/internal/store"
)

// Input validation errors; the prompt loop re-prompts on any of these.
var (
	ErrEmptyRadioID     = errors.New("radio ID cannot be empty")
	ErrInvalidYear      = errors.New("year must be a 4-digit number")
	ErrInvalidSelection = errors.New("invalid selection")
)

// NormalizeRadioID trims and upper-cases a raw radio ID, rejecting empty
// input.
func NormalizeRadioID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" {
		return "", ErrEmptyRadioID
	}
	return id, nil
}

// ValidateYear checks that raw is exactly four digits.
func ValidateYear(raw string) error {
	raw = strings.TrimSpace(raw)
	if len(raw) != 4 {
		return ErrInvalidYear
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ErrInvalidYear
		}
	}
	return nil
}

// ParseSelection parses a menu choice in the range 0..count, where 0 means
// "add a new configuration".
func ParseSelection(raw string, count int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: not a number", ErrInvalidSelection)
	}
	if n < 0 || n > count {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSelection, n)
	}
	return n, nil
}

// lineResult is one line read from the input, or the read error that ended
// it.
type lineResult struct {
	text string
	err  error
}

// Prompter drives the interactive configuration-selection surface. Input
// is consumed by a dedicated reader goroutine so that a blocked prompt can
// still be abandoned when the operator interrupts the process.
type Prompter struct {
	lines  chan lineResult
	out    io.Writer
	store  store.Store
	ledger ledger.Ledger
}

// NewPrompter creates a prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer, s store.Store, l ledger.Ledger) *Prompter {
	p := &Prompter{
		lines:  make(chan lineResult),
		out:    out,
		store:  s,
		ledger: l,
	}
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			p.lines <- lineResult{text: scanner.Text()}
		}
		if err := scanner.Err(); err != nil {
			p.lines <- lineResult{err: err}
		}
	}()
	return p
}

// readLine prompts and waits for the next input line, giving up as soon as
// ctx is cancelled even while the underlying read is still blocked.
func (p *Prompter) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return res.text, res.err
	}
}

// AddConfiguration walks the user through creating a new vehicle record,
// re-prompting on invalid input, and persists it via the store.
func (p *Prompter) AddConfiguration(ctx context.Context) (store.VehicleConfiguration, error) {
	fmt.Fprintln(p.out, "Adding a new configuration entry:")
	for {
		var radioID string
		for {
			raw, err := p.readLine(ctx, "Enter Radio ID: ")
			if err != nil {
				return store.VehicleConfiguration{}, err
			}
			radioID, err = NormalizeRadioID(raw)
			if err == nil {
				break
			}
			fmt.Fprintln(p.out, "Radio ID cannot be empty. Please try again.")
		}

		vehicleMake, err := p.readLine(ctx, "Enter Vehicle Make: ")
		if err != nil {
			return store.VehicleConfiguration{}, err
		}
		vehicleModel, err := p.readLine(ctx, "Enter Vehicle Model: ")
		if err != nil {
			return store.VehicleConfiguration{}, err
		}

		var year string
		for {
			year, err = p.readLine(ctx, "Enter Vehicle Year (YYYY): ")
			if err != nil {
				return store.VehicleConfiguration{}, err
			}
			year = strings.TrimSpace(year)
			if ValidateYear(year) == nil {
				break
			}
			fmt.Fprintln(p.out, "Year must be a 4-digit number. Please try again.")
		}

		record, err := p.store.Add(radioID, vehicleMake, vehicleModel, year)
		if err != nil {
			if errors.Is(err, store.ErrSaveFailed) {
				// The record was added; only the persist failed.
				fmt.Fprintf(p.out, "Warning: could not save configuration: %v\n", err)
				return record, nil
			}
			// Duplicate radio IDs are only caught by the store.
			fmt.Fprintf(p.out, "Could not add configuration: %v\n", err)
			continue
		}
		return record, nil
	}
}

// SelectConfiguration lists the known configurations with their activation
// status and returns the chosen one, or hands off to AddConfiguration when
// the store is empty or the user asks for a new entry.
func (p *Prompter) SelectConfiguration(ctx context.Context) (store.VehicleConfiguration, error) {
	configs := p.store.Configurations()
	if len(configs) == 0 {
		fmt.Fprintln(p.out, "No configurations available. Please add one.")
		return p.AddConfiguration(ctx)
	}

	fmt.Fprintln(p.out, "Available configurations:")
	for i, conf := range configs {
		status := "Not Activated"
		last := "N/A"
		if activated, lastActivated := p.ledger.IsActivated(conf.RadioID); activated {
			status = "Activated"
			last = lastActivated
		}
		fmt.Fprintf(p.out, "%d. %s %s (%s) - Radio ID: %s [%s | Last: %s]\n",
			i+1, conf.Make, conf.Model, conf.Year, conf.RadioID, status, last)
	}

	for {
		raw, err := p.readLine(ctx, "Select a configuration by number (or 0 to add a new one): ")
		if err != nil {
			return store.VehicleConfiguration{}, err
		}
		choice, err := ParseSelection(raw, len(configs))
		if err != nil {
			fmt.Fprintln(p.out, "Invalid selection. Please try again.")
			continue
		}
		if choice == 0 {
			return p.AddConfiguration(ctx)
		}
		return configs[choice-1], nil
	}
}

// ConfirmReactivation asks whether to force a new activation for a radio
// that already has a ledger entry. Anything other than "y" declines.
func (p *Prompter) ConfirmReactivation(ctx context.Context, radioID, lastActivated string) (bool, error) {
	fmt.Fprintf(p.out, "This configuration was already activated on %s.\n", lastActivated)
	raw, err := p.readLine(ctx, "Do you want to force reactivation? (y/N): ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(raw), "y"), nil
}

// WaitForEnter blocks until the user presses enter or ctx is cancelled.
func (p *Prompter) WaitForEnter(ctx context.Context, message string) error {
	_, err := p.readLine(ctx, message)
	return err
}
