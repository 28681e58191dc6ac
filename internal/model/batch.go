package model

import (
	"fmt"
	"time"
)

// AuthMode selects how the remote session authenticates.
type AuthMode string

const (
	// AuthModePassword authenticates with a plain password.
	AuthModePassword AuthMode = "password"
	// AuthModeKey authenticates with a private key file.
	AuthModeKey AuthMode = "key"
)

// DefaultReconnectThresholdSeconds is the inter-file delay length from which
// the orchestrator proactively checks session liveness after waiting.
const DefaultReconnectThresholdSeconds = 55

// SessionConfig holds the settings to open a remote SFTP session.
type SessionConfig struct {
	Host string
	Port int
	User string
	// AuthMode selects password or key auth. Defaults to password.
	AuthMode AuthMode
	Password string
	// KeyPath is the path to a PEM encoded private key file (key auth).
	KeyPath string
	// ConnectTimeout is the connection timeout (the dialer applies its own
	// default when zero).
	ConnectTimeout time.Duration
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required: %w", ErrNotValid)
	}
	if c.User == "" {
		return fmt.Errorf("user is required: %w", ErrNotValid)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range: %w", c.Port, ErrNotValid)
	}

	switch c.AuthMode {
	case "", AuthModePassword:
	case AuthModeKey:
		if c.KeyPath == "" {
			return fmt.Errorf("key path is required for key auth: %w", ErrNotValid)
		}
	default:
		return fmt.Errorf("unknown auth mode %q: %w", c.AuthMode, ErrNotValid)
	}

	return nil
}

// Policy holds the timing and confirmation settings for one batch run.
type Policy struct {
	// StartDelaySeconds delays the whole run, including the initial connect.
	StartDelaySeconds int
	// InterFileDelaySeconds is the pause between consecutive uploads (0 = none).
	InterFileDelaySeconds int
	// CheckpointAfter pauses the run for confirmation after that many files
	// have been attempted (0 = disabled).
	CheckpointAfter int
	// ReconnectThresholdSeconds: an inter-file delay of at least this many
	// seconds triggers a liveness check after the wait. 0 means the default.
	ReconnectThresholdSeconds int
}

// Validate validates the policy.
func (p *Policy) Validate() error {
	if p.StartDelaySeconds < 0 {
		return fmt.Errorf("start delay can't be negative: %w", ErrNotValid)
	}
	if p.InterFileDelaySeconds < 0 {
		return fmt.Errorf("inter-file delay can't be negative: %w", ErrNotValid)
	}
	if p.CheckpointAfter < 0 {
		return fmt.Errorf("checkpoint position can't be negative: %w", ErrNotValid)
	}
	if p.ReconnectThresholdSeconds < 0 {
		return fmt.Errorf("reconnect threshold can't be negative: %w", ErrNotValid)
	}
	return nil
}

// ReconnectThreshold returns the effective reconnect threshold in seconds.
func (p *Policy) ReconnectThreshold() int {
	if p.ReconnectThresholdSeconds == 0 {
		return DefaultReconnectThresholdSeconds
	}
	return p.ReconnectThresholdSeconds
}

// BatchRequest is the immutable snapshot of everything one upload run needs.
type BatchRequest struct {
	Session SessionConfig
	// RemoteDir is the destination directory. Empty means the session's
	// default location.
	RemoteDir string
	// Files are uploaded in the exact order given, duplicates included.
	Files []string
	Policy Policy
}

// Validate validates the batch request. An empty file list is valid.
func (r *BatchRequest) Validate() error {
	if err := r.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := r.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}
