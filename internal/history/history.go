package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ActivationAttempt is one workflow run, successful or not. The JSON
// ledger stays authoritative for gatekeeping; this table is a write-mostly
// archive of everything that was attempted.
type ActivationAttempt struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	RadioID    string    `gorm:"index;size:64;not null"`
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time `gorm:"not null"`
	Succeeded  bool      `gorm:"not null"`
	FailedStep string    `gorm:"size:64"`
	Error      string
}

// Archive records activation attempts in a local SQLite database.
type Archive struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open initializes the attempt archive at dsn and runs migrations.
func Open(dsn string, logger *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt archive: %w", err)
	}

	if err := db.AutoMigrate(&ActivationAttempt{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	return &Archive{db: db, logger: logger}, nil
}

// Record archives the outcome of one workflow run.
func (a *Archive) Record(ctx context.Context, radioID string, startedAt, finishedAt time.Time, failedStep string, runErr error) error {
	attempt := ActivationAttempt{
		RadioID:    radioID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Succeeded:  runErr == nil,
		FailedStep: failedStep,
	}
	if runErr != nil {
		attempt.Error = runErr.Error()
	}

	if err := a.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		return fmt.Errorf("failed to record activation attempt for %s: %w", radioID, err)
	}
	a.logger.Info("activation attempt archived",
		zap.String("radio_id", radioID), zap.Bool("succeeded", attempt.Succeeded))
	return nil
}

// Attempts returns all archived runs for radioID, most recent first.
func (a *Archive) Attempts(ctx context.Context, radioID string) ([]ActivationAttempt, error) {
	var attempts []ActivationAttempt
	err := a.db.WithContext(ctx).
		Where("radio_id = ?", radioID).
		Order("started_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attempts for %s: %w", radioID, err)
	}
	return attempts, nil
}
