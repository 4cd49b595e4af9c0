package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aadityaverma2011/dietplan-suggest/internal/domain"
)

// OutcomeStore keeps a running count of advice outcomes per kind. It never
// stores images or advice text.
type OutcomeStore struct {
	db *sql.DB
}

func NewOutcomeStore(db *sql.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

func (s *OutcomeStore) Record(ctx context.Context, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO advice_outcomes (kind, count, last_at) VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(kind) DO UPDATE SET count = count + 1, last_at = CURRENT_TIMESTAMP
	`, kind)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

func (s *OutcomeStore) Counts(ctx context.Context) ([]*domain.OutcomeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, count, last_at FROM advice_outcomes ORDER BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make([]*domain.OutcomeCount, 0)
	for rows.Next() {
		c := &domain.OutcomeCount{}
		if err := rows.Scan(&c.Kind, &c.Count, &c.LastAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	return counts, nil
}
