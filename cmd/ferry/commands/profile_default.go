package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

// ProfileSetDefaultCommand marks a stored profile as the default one.
type ProfileSetDefaultCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name string
}

// NewProfileSetDefaultCommand returns the profile set-default command.
func NewProfileSetDefaultCommand(rootCmd *RootCommand, profileCmd *kingpin.CmdClause) *ProfileSetDefaultCommand {
	c := &ProfileSetDefaultCommand{rootCmd: rootCmd}

	c.Cmd = profileCmd.Command("set-default", "Mark a profile as the default one.")
	c.Cmd.Arg("name", "Name of the profile.").Required().StringVar(&c.name)

	return c
}

func (c ProfileSetDefaultCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfileSetDefaultCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	if err := repo.SetDefaultProfile(ctx, c.name); err != nil {
		return fmt.Errorf("could not set default profile: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Profile %q is now the default.\n", c.name)
	return nil
}
