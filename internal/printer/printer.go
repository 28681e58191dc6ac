package printer

import "github.com/ferrycli/ferry/internal/model"

// Printer knows how to print profile information in different formats.
type Printer interface {
	PrintProfileList(profiles []model.Profile) error
	PrintProfile(profile model.Profile) error
	PrintMessage(msg string) error
}
