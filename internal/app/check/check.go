package check

import (
	"context"
	"fmt"

	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session"
)

// ServiceConfig is the configuration for the check service.
type ServiceConfig struct {
	Dialer session.Dialer
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Dialer == nil {
		return fmt.Errorf("dialer is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Check"})
	return nil
}

// Service verifies that a remote session can be established.
type Service struct {
	dialer session.Dialer
	logger log.Logger
}

// NewService creates a new check service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		dialer: cfg.Dialer,
		logger: cfg.Logger,
	}, nil
}

// Result holds the outcome of a successful connection check.
type Result struct {
	// HomePath is the remote home directory the session lands in.
	HomePath string
}

// Run opens a session, resolves the remote home directory and closes the
// session again.
func (s *Service) Run(ctx context.Context, cfg model.SessionConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	s.logger.Debugf("Checking connection to %s:%d", cfg.Host, cfg.Port)

	sess, err := s.dialer.Dial(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			s.logger.Debugf("Could not close session: %v", err)
		}
	}()

	home, err := sess.HomePath()
	if err != nil {
		return nil, fmt.Errorf("could not resolve remote home: %w", err)
	}

	return &Result{HomePath: home}, nil
}
