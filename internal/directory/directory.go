// Package directory defines the participant directory the ledger engine
// reads from. Participant lifecycle (registration, renames, removal) is
// owned by an external identity system; the engine only performs existence
// checks and display-name lookups before writing ledger records.
package directory

import (
	"context"
	"errors"
)

// ErrUnknownParticipant is returned by DisplayName for an id the directory
// has never seen.
var ErrUnknownParticipant = errors.New("unknown participant")

// Directory resolves participant identifiers issued by the external
// identity system.
type Directory interface {
	// Exists reports whether the participant id is known.
	Exists(ctx context.Context, participantID int64) (bool, error)

	// DisplayName returns the participant's display name, or
	// ErrUnknownParticipant.
	DisplayName(ctx context.Context, participantID int64) (string, error)
}

// Registrar is implemented by directory backends that also accept
// registrations. The ledger engine never calls this; it exists for the
// hosting application's registration surface.
type Registrar interface {
	// Upsert creates the participant or refreshes its display name.
	Upsert(ctx context.Context, participantID int64, displayName string) error
}
