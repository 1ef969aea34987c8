package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ActivationRecord is the per-radio activation status kept in the ledger.
type ActivationRecord struct {
	Activated     bool   `json:"activated"`
	LastActivated string `json:"last_activated"`
}

// Ledger tracks which radios have completed a full activation workflow.
// Entries are written only after all workflow steps succeed.
type Ledger interface {
	// IsActivated reports whether radioID has an activation record and the
	// last-activated timestamp, or "unknown" if none is recorded.
	IsActivated(radioID string) (bool, string)
	// MarkActivated overwrites the entry for radioID and persists
	// synchronously.
	MarkActivated(radioID, timestamp string) error
	// Records returns a copy of all ledger entries.
	Records() map[string]ActivationRecord
}

type jsonLedger struct {
	path    string
	logger  *zap.Logger
	entries map[string]ActivationRecord
}

// Open loads the activation ledger from path. A missing or corrupt file is
// logged and treated as an empty ledger.
func Open(path string, logger *zap.Logger) Ledger {
	l := &jsonLedger{
		path:    path,
		logger:  logger,
		entries: make(map[string]ActivationRecord),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read activation ledger, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return l
	}

	var entries map[string]ActivationRecord
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Error("invalid activation ledger, starting empty",
			zap.String("path", path), zap.Error(err))
		return l
	}
	l.entries = entries
	return l
}

func (l *jsonLedger) IsActivated(radioID string) (bool, string) {
	rec, ok := l.entries[radioID]
	if !ok || !rec.Activated {
		return false, "unknown"
	}
	last := rec.LastActivated
	if last == "" {
		last = "unknown"
	}
	return true, last
}

func (l *jsonLedger) MarkActivated(radioID, timestamp string) error {
	l.entries[radioID] = ActivationRecord{Activated: true, LastActivated: timestamp}
	if err := l.save(); err != nil {
		// The caller decides how to report a write failure.
		return err
	}
	l.logger.Info("radio marked as activated",
		zap.String("radio_id", radioID), zap.String("last_activated", timestamp))
	return nil
}

func (l *jsonLedger) Records() map[string]ActivationRecord {
	out := make(map[string]ActivationRecord, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

func (l *jsonLedger) save() error {
	raw, err := json.MarshalIndent(l.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal activation ledger: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write activation ledger: %w", err)
	}
	l.logger.Info("activation ledger saved", zap.String("path", l.path))
	return nil
}
