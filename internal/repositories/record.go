package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
)

// RecordRepository stores [models.LocalRecord] values keyed by name.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new [RecordRepository] with the given database connection
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Load returns the record called name, or [shared.ErrNoRecord].
func (r *RecordRepository) Load(ctx context.Context, name string) (*models.LocalRecord, error) {
	query := `SELECT name, version, payload, updated_at FROM local_records WHERE name = ?`

	var (
		rec     models.LocalRecord
		payload string
	)
	err := r.db.QueryRowContext(ctx, query, name).Scan(&rec.Name, &rec.Version, &payload, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoRecord, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}

	rec.Payload = []byte(payload)
	return &rec, nil
}

// Save inserts or replaces rec and stamps its UpdatedAt.
func (r *RecordRepository) Save(ctx context.Context, rec *models.LocalRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("%w: record name is required", shared.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO local_records (name, version, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, rec.Name, rec.Version, string(rec.Payload), now); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	rec.UpdatedAt = now
	return nil
}

// Delete removes the record called name. Deleting a missing record is not an error.
func (r *RecordRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM local_records WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
