package session

import (
	"context"

	"pharmapos/terminal/internal/domain"
)

// Store persists the signed-in user and the in-progress shift of one
// terminal. Implementations are scoped to a terminal id at construction.
type Store interface {
	User(ctx context.Context) (domain.SessionUser, bool, error)
	SaveUser(ctx context.Context, user domain.SessionUser) error
	Shift(ctx context.Context) (domain.ShiftSnapshot, bool, error)
	SaveShift(ctx context.Context, snap domain.ShiftSnapshot) error
	ClearShift(ctx context.Context) error
	// Clear drops both the user and the shift.
	Clear(ctx context.Context) error
	Close() error
}

// Key builds the namespaced key used by the remote stores.
func Key(terminalID, part string) string {
	return "pharmapos:session:" + terminalID + ":" + part
}
