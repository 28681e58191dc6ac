package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ferrycli/ferry/internal/printer"
	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

// ProfileListCommand lists all stored profiles.
type ProfileListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewProfileListCommand returns the profile list command.
func NewProfileListCommand(rootCmd *RootCommand, profileCmd *kingpin.CmdClause) *ProfileListCommand {
	c := &ProfileListCommand{rootCmd: rootCmd}

	c.Cmd = profileCmd.Command("list", "List stored profiles.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ProfileListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfileListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	profiles, err := repo.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("could not list profiles: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintProfileList(profiles); err != nil {
		return fmt.Errorf("could not print profiles: %w", err)
	}

	return nil
}
