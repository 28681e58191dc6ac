package lib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session/sftp"
	"github.com/ferrycli/ferry/internal/storage"
	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

const (
	defaultDataDir = ".ferry"
	defaultDBFile  = "ferry.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.ferry/ferry.db for storage and connect over SSH/SFTP.
type Config struct {
	// DBPath is the SQLite database path for stored profiles.
	// Default: ~/.ferry/ferry.db.
	DBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Dialer opens remote sessions. Default: SSH/SFTP.
	// Provide a custom one to test without a real server.
	Dialer Dialer
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = filepath.Join(home, defaultDataDir, defaultDBFile)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Dialer == nil {
		dialer, err := sftp.NewDialer(sftp.DialerConfig{Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create dialer: %w", err)
		}
		c.Dialer = dialer
	}

	return nil
}

// Client is the main SDK entry point for running batch uploads and managing
// profiles programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo    storage.ProfileRepository
	dialer  Dialer
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	return &Client{
		repo:    repo,
		dialer:  cfg.Dialer,
		logger:  cfg.Logger,
		closeFn: repo.Close,
	}, nil
}

// Close releases the client's resources.
func (c *Client) Close() error {
	return c.closeFn()
}

// resolveConnection returns the session configuration for a run: the explicit
// connection when given, otherwise the named or default stored profile. The
// second value is the profile's remote dir (empty for explicit connections).
func (c *Client) resolveConnection(ctx context.Context, profileName string, conn *Connection) (*model.SessionConfig, string, error) {
	if conn != nil {
		cfg := toInternalConnection(*conn)
		return &cfg, "", nil
	}

	var profile *model.Profile
	var err error
	if profileName != "" {
		profile, err = c.repo.GetProfile(ctx, profileName)
	} else {
		profile, err = c.repo.GetDefaultProfile(ctx)
	}
	if err != nil {
		if profileName == "" && errors.Is(err, model.ErrNotFound) {
			return nil, "", joinErrors(fmt.Errorf("no connection given and no default profile configured"), ErrNotFound)
		}
		return nil, "", mapError(err)
	}

	cfg := profile.SessionConfig()
	return &cfg, profile.RemoteDir, nil
}
