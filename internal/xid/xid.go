package xid

import (
	"github.com/google/uuid"
)

// New returns a random identifier such as "shift-2b0c...". The prefix keeps
// ids readable in logs and receipts.
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// Key returns a bare v4 uuid for idempotency keys and request ids.
func Key() string {
	return uuid.NewString()
}
