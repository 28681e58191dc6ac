package model

import (
	"fmt"
	"time"
)

// Profile is a stored connection preset.
type Profile struct {
	Name      string
	Host      string
	Port      int
	User      string
	AuthMode  AuthMode
	Password  string
	KeyPath   string
	RemoteDir string
	Default   bool
	CreatedAt time.Time
}

// Validate validates the profile.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required: %w", ErrNotValid)
	}

	cfg := p.SessionConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	return nil
}

// SessionConfig returns the session configuration the profile resolves to.
func (p *Profile) SessionConfig() SessionConfig {
	port := p.Port
	if port == 0 {
		port = 22
	}
	return SessionConfig{
		Host:     p.Host,
		Port:     port,
		User:     p.User,
		AuthMode: p.AuthMode,
		Password: p.Password,
		KeyPath:  p.KeyPath,
	}
}
