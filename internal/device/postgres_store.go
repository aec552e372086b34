package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sentrasec/sentra/internal/fingerprint"
)

// PostgresStore persists per-user fingerprint history in PostgreSQL.
// Fingerprints are stored as JSONB rows; the FIFO bound is enforced on
// append by deleting rows beyond the newest MaxHistory.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check.
var _ HistoryStore = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed history store.
// Schema is managed by the goose migrations in migrations/.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]fingerprint.DeviceFingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint
		FROM device_history
		WHERE user_id = $1
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]fingerprint.DeviceFingerprint, 0, MaxHistory)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan device history row: %w", err)
		}
		var fp fingerprint.DeviceFingerprint
		if err := json.Unmarshal(raw, &fp); err != nil {
			return nil, fmt.Errorf("unmarshal stored fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, userID string, fp fingerprint.DeviceFingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO device_history (user_id, fingerprint, captured_at)
		VALUES ($1, $2, $3)
	`, userID, raw, fp.CapturedAt); err != nil {
		return fmt.Errorf("insert fingerprint: %w", err)
	}

	// Evict everything beyond the newest MaxHistory rows.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM device_history
		WHERE user_id = $1
		  AND id NOT IN (
			SELECT id FROM device_history
			WHERE user_id = $1
			ORDER BY id DESC
			LIMIT $2
		  )
	`, userID, MaxHistory); err != nil {
		return fmt.Errorf("evict old fingerprints: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM device_history WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("clear device history: %w", err)
	}
	return nil
}
