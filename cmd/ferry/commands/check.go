package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ferrycli/ferry/internal/app/check"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session/sftp"
	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

type CheckCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	profile  string
	host     string
	port     int
	user     string
	auth     string
	password string
	keyPath  string
}

// NewCheckCommand returns the check command.
func NewCheckCommand(rootCmd *RootCommand, app *kingpin.Application) *CheckCommand {
	c := &CheckCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("check", "Test an SFTP connection and report the remote home path.")
	c.Cmd.Flag("profile", "Stored profile to connect with.").Short('p').StringVar(&c.profile)
	c.Cmd.Flag("host", "Remote host (overrides the profile).").StringVar(&c.host)
	c.Cmd.Flag("port", "Remote port.").Default("22").IntVar(&c.port)
	c.Cmd.Flag("user", "Remote user.").StringVar(&c.user)
	c.Cmd.Flag("auth", "Authentication mode (password, key).").Default("password").EnumVar(&c.auth, "password", "key")
	c.Cmd.Flag("password", "Password for password auth.").StringVar(&c.password)
	c.Cmd.Flag("key", "Private key file for key auth.").StringVar(&c.keyPath)

	return c
}

func (c CheckCommand) Name() string { return c.Cmd.FullCommand() }

func (c CheckCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.resolveSession(ctx)
	if err != nil {
		return err
	}

	dialer, err := sftp.NewDialer(sftp.DialerConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create dialer: %w", err)
	}

	svc, err := check.NewService(check.ServiceConfig{
		Dialer: dialer,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Connection OK (remote home: %s)\n", res.HomePath)
	return nil
}

func (c CheckCommand) resolveSession(ctx context.Context) (*model.SessionConfig, error) {
	var cfg model.SessionConfig

	if c.profile != "" || c.host == "" {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: c.rootCmd.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create repository: %w", err)
		}
		defer repo.Close()

		var profile *model.Profile
		if c.profile != "" {
			profile, err = repo.GetProfile(ctx, c.profile)
		} else {
			profile, err = repo.GetDefaultProfile(ctx)
		}
		if err != nil {
			if c.profile == "" && errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("no --host given and no default profile configured, save one with 'ferry profile save'")
			}
			return nil, fmt.Errorf("could not load profile: %w", err)
		}

		cfg = profile.SessionConfig()
	}

	if c.host != "" {
		cfg.Host = c.host
		cfg.Port = c.port
		cfg.AuthMode = model.AuthMode(c.auth)
	}
	if c.user != "" {
		cfg.User = c.user
	}
	if c.password != "" {
		cfg.Password = c.password
	}
	if c.keyPath != "" {
		cfg.KeyPath = c.keyPath
		cfg.AuthMode = model.AuthModeKey
	}

	return &cfg, nil
}
