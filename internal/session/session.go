package session

import (
	"context"

	"github.com/ferrycli/ferry/internal/model"
)

// Session is an open, authenticated file-transfer connection to a remote
// host. The orchestrator is the only owner of a session: it opens, reopens
// and closes it, observers never touch it.
type Session interface {
	// IsActive reports whether the underlying connection is still alive.
	IsActive() bool
	// Upload copies a local file to remotePath, overwriting any existing
	// remote file with the same name.
	Upload(ctx context.Context, localPath, remotePath string) error
	// HomePath returns the normalized remote home directory. Used for the
	// human readable connect confirmation only.
	HomePath() (string, error)
	// Close closes the connection. Errors are best-effort information.
	Close() error
}

// Dialer opens remote sessions.
type Dialer interface {
	Dial(ctx context.Context, cfg model.SessionConfig) (Session, error)
}

// DialerFunc is a helper to create dialers from functions.
type DialerFunc func(ctx context.Context, cfg model.SessionConfig) (Session, error)

// Dial satisfies Dialer.
func (f DialerFunc) Dial(ctx context.Context, cfg model.SessionConfig) (Session, error) {
	return f(ctx, cfg)
}
