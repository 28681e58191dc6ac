package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

// ProfileSaveCommand creates or updates a stored connection profile.
type ProfileSaveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name      string
	host      string
	port      int
	user      string
	auth      string
	password  string
	keyPath   string
	remoteDir string
	def       bool
}

// NewProfileSaveCommand returns the profile save command.
func NewProfileSaveCommand(rootCmd *RootCommand, profileCmd *kingpin.CmdClause) *ProfileSaveCommand {
	c := &ProfileSaveCommand{rootCmd: rootCmd}

	c.Cmd = profileCmd.Command("save", "Create or update a connection profile.")
	c.Cmd.Arg("name", "Name of the profile.").Required().StringVar(&c.name)
	c.Cmd.Flag("host", "Remote host.").Required().StringVar(&c.host)
	c.Cmd.Flag("port", "Remote port.").Default("22").IntVar(&c.port)
	c.Cmd.Flag("user", "Remote user.").Required().StringVar(&c.user)
	c.Cmd.Flag("auth", "Authentication mode (password, key).").Default("password").EnumVar(&c.auth, "password", "key")
	c.Cmd.Flag("password", "Password for password auth.").StringVar(&c.password)
	c.Cmd.Flag("key", "Private key file for key auth.").StringVar(&c.keyPath)
	c.Cmd.Flag("remote-dir", "Default destination directory.").StringVar(&c.remoteDir)
	c.Cmd.Flag("default", "Make this the default profile.").BoolVar(&c.def)

	return c
}

func (c ProfileSaveCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfileSaveCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	profile := model.Profile{
		Name:      c.name,
		Host:      c.host,
		Port:      c.port,
		User:      c.user,
		AuthMode:  model.AuthMode(c.auth),
		Password:  c.password,
		KeyPath:   c.keyPath,
		RemoteDir: c.remoteDir,
		CreatedAt: time.Now().UTC(),
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	action := "saved"
	err = repo.CreateProfile(ctx, profile)
	switch {
	case errors.Is(err, model.ErrAlreadyExists):
		if err := repo.UpdateProfile(ctx, profile); err != nil {
			return fmt.Errorf("could not update profile: %w", err)
		}
		action = "updated"
	case err != nil:
		return fmt.Errorf("could not save profile: %w", err)
	}

	if c.def {
		if err := repo.SetDefaultProfile(ctx, c.name); err != nil {
			return fmt.Errorf("could not set default profile: %w", err)
		}
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Profile %q %s.\n", c.name, action)
	return nil
}
