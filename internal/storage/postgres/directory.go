package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/directory"
)

// Exists reports whether the participant id is known.
func (p *PostgresStore) Exists(ctx context.Context, participantID int64) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE user_id = $1", participantID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return true, nil
}

// DisplayName returns the participant's display name.
func (p *PostgresStore) DisplayName(ctx context.Context, participantID int64) (string, error) {
	var name string
	err := p.db.QueryRowContext(ctx,
		"SELECT display_name FROM users WHERE user_id = $1", participantID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", directory.ErrUnknownParticipant
	}
	if err != nil {
		return "", fmt.Errorf("failed to get display name: %w", err)
	}
	return name, nil
}

// Upsert creates the participant or refreshes its display name.
func (p *PostgresStore) Upsert(ctx context.Context, participantID int64, displayName string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (user_id, display_name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		participantID, displayName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}
	return nil
}
