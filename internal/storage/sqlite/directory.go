package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/directory"
)

// The users table doubles as the participant directory when the hosting
// application keeps identity in the same database. The ledger engine only
// reads it; Upsert exists for the registration surface.

// Exists reports whether the participant id is known.
func (s *SQLiteStore) Exists(ctx context.Context, participantID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE user_id = ?", participantID,
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
func (s *SQLiteStore) DisplayName(ctx context.Context, participantID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT display_name FROM users WHERE user_id = ?", participantID,
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
func (s *SQLiteStore) Upsert(ctx context.Context, participantID int64, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, display_name) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET display_name = excluded.display_name`,
		participantID, displayName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}
	return nil
}
