package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VehicleConfiguration represents one radio-equipped vehicle known to the
// tool. Records are immutable once created.
type VehicleConfiguration struct {
	RadioID string `json:"RadioID"`
	Make    string `json:"Make"`
	Model   string `json:"Model"`
	Year    string `json:"Year"`
}

// storeFile is the on-disk shape of the configuration store.
type storeFile struct {
	Configurations []VehicleConfiguration `json:"configurations"`
	DeviceID       string                 `json:"device_id,omitempty"`
}

// Validation errors returned by Add.
var (
	ErrEmptyRadioID     = errors.New("radio ID must not be empty")
	ErrDuplicateRadioID = errors.New("radio ID already exists")
	ErrInvalidYear      = errors.New("year must be a 4-digit number")
)

// ErrSaveFailed marks a persist failure after the in-memory state was
// already updated. Callers should warn and carry on; the record or
// identifier returned alongside it remains valid for the rest of the run.
var ErrSaveFailed = errors.New("configuration store not persisted")

// Store defines the interface for the persisted configuration collection.
type Store interface {
	// Configurations returns all records in insertion order.
	Configurations() []VehicleConfiguration
	// Add validates and appends a new record, persisting immediately.
	// The returned record has its RadioID upper-cased. A persist failure
	// is reported as ErrSaveFailed together with the added record.
	Add(radioID, make, model, year string) (VehicleConfiguration, error)
	// DeviceID returns the persisted device identifier, generating and
	// persisting a new one if the store does not have one yet. A persist
	// failure is reported as ErrSaveFailed together with the identifier.
	DeviceID() (string, error)
	// Save writes the full store back to disk.
	Save() error
}

// jsonStore implements Store on top of a flat JSON file.
type jsonStore struct {
	path   string
	logger *zap.Logger
	data   storeFile
}

// Open loads the configuration store from path. A missing or corrupt file
// is logged and treated as an empty store, never as a fatal condition.
func Open(path string, logger *zap.Logger) Store {
	s := &jsonStore{path: path, logger: logger}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read configuration store, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return s
	}

	var data storeFile
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.Error("invalid configuration store, starting empty",
			zap.String("path", path), zap.Error(err))
		return s
	}
	s.data = data
	return s
}

func (s *jsonStore) Configurations() []VehicleConfiguration {
	return s.data.Configurations
}

func (s *jsonStore) Add(radioID, make, model, year string) (VehicleConfiguration, error) {
	radioID = strings.ToUpper(strings.TrimSpace(radioID))
	if radioID == "" {
		return VehicleConfiguration{}, ErrEmptyRadioID
	}
	for _, c := range s.data.Configurations {
		if c.RadioID == radioID {
			return VehicleConfiguration{}, fmt.Errorf("%w: %s", ErrDuplicateRadioID, radioID)
		}
	}
	if !validYear(year) {
		return VehicleConfiguration{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
	}

	record := VehicleConfiguration{
		RadioID: radioID,
		Make:    strings.TrimSpace(make),
		Model:   strings.TrimSpace(model),
		Year:    year,
	}
	s.data.Configurations = append(s.data.Configurations, record)

	if err := s.Save(); err != nil {
		// In-memory state stays authoritative for the rest of the run.
		return record, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return record, nil
}

func (s *jsonStore) DeviceID() (string, error) {
	if s.data.DeviceID != "" {
		return s.data.DeviceID, nil
	}
	s.data.DeviceID = uuid.NewString()
	s.logger.Info("generated new device identifier", zap.String("device_id", s.data.DeviceID))
	if err := s.Save(); err != nil {
		return s.data.DeviceID, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return s.data.DeviceID, nil
}

func (s *jsonStore) Save() error {
	raw, err := json.MarshalIndent(s.data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration store: %w", err)
	}
	s.logger.Info("configuration store saved", zap.String("path", s.path))
	return nil
}

// validYear reports whether year is exactly four ASCII digits.
func validYear(year string) bool {
	if len(year) != 4 {
		return false
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
