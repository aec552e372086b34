package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists fraud predictions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a PostgreSQL-backed prediction store.
// Schema is managed by the goose migrations in migrations/.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, p *Prediction) error {
	factorsJSON, err := json.Marshal(p.RiskFactors)
	if err != nil {
		return fmt.Errorf("marshal risk factors: %w", err)
	}
	patternsJSON, err := json.Marshal(p.DetectedPatterns)
	if err != nil {
		return fmt.Errorf("marshal patterns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fraud_predictions
			(id, transaction_id, risk_score, risk_level, is_fraudulent,
			 confidence, risk_factors, detected_patterns, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		p.ID,
		p.TransactionID,
		p.RiskScore,
		string(p.RiskLevel),
		p.IsFraudulent,
		p.Confidence,
		factorsJSON,
		patternsJSON,
		p.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("record fraud prediction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Prediction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, risk_score, risk_level, is_fraudulent,
		       confidence, risk_factors, detected_patterns, evaluated_at
		FROM fraud_predictions
		ORDER BY evaluated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list fraud predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Prediction
	for rows.Next() {
		var (
			p            Prediction
			level        string
			factorsJSON  []byte
			patternsJSON []byte
		)
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.RiskScore, &level,
			&p.IsFraudulent, &p.Confidence, &factorsJSON, &patternsJSON,
			&p.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("scan fraud prediction: %w", err)
		}
		p.RiskLevel = Level(level)
		if err := json.Unmarshal(factorsJSON, &p.RiskFactors); err != nil {
			return nil, fmt.Errorf("unmarshal risk factors: %w", err)
		}
		if err := json.Unmarshal(patternsJSON, &p.DetectedPatterns); err != nil {
			return nil, fmt.Errorf("unmarshal patterns: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
