package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ferrycli/ferry/internal/model"
)

// TablePrinter prints profile information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintProfileList prints profiles in a table format.
func (t *TablePrinter) PrintProfileList(profiles []model.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tHOST\tUSER\tAUTH\tREMOTE DIR\tDEFAULT")

	for _, p := range profiles {
		def := ""
		if p.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s:%d\t%s\t%s\t%s\t%s\n", p.Name, p.Host, p.Port, p.User, authMode(p), p.RemoteDir, def)
	}

	return nil
}

// PrintProfile prints a single profile in detail.
func (t *TablePrinter) PrintProfile(p model.Profile) error {
	fmt.Fprintf(t.writer, "Name:        %s\n", p.Name)
	fmt.Fprintf(t.writer, "Host:        %s:%d\n", p.Host, p.Port)
	fmt.Fprintf(t.writer, "User:        %s\n", p.User)
	fmt.Fprintf(t.writer, "Auth:        %s\n", authMode(p))
	if p.KeyPath != "" {
		fmt.Fprintf(t.writer, "Key:         %s\n", p.KeyPath)
	}
	fmt.Fprintf(t.writer, "Remote dir:  %s\n", p.RemoteDir)
	fmt.Fprintf(t.writer, "Default:     %t\n", p.Default)

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}

func authMode(p model.Profile) string {
	if p.AuthMode == "" {
		return string(model.AuthModePassword)
	}
	return string(p.AuthMode)
}
