package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

// ProfileRmCommand removes a stored profile.
type ProfileRmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name string
}

// NewProfileRmCommand returns the profile rm command.
func NewProfileRmCommand(rootCmd *RootCommand, profileCmd *kingpin.CmdClause) *ProfileRmCommand {
	c := &ProfileRmCommand{rootCmd: rootCmd}

	c.Cmd = profileCmd.Command("rm", "Remove a stored profile.")
	c.Cmd.Arg("name", "Name of the profile.").Required().StringVar(&c.name)

	return c
}

func (c ProfileRmCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfileRmCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	if err := repo.DeleteProfile(ctx, c.name); err != nil {
		return fmt.Errorf("could not remove profile: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Profile %q removed.\n", c.name)
	return nil
}
