package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ferrycli/ferry/internal/model"
)

// JSONPrinter prints profile information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// profileOutput represents a profile in JSON output. Credentials are never
// printed.
type profileOutput struct {
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	User      string    `json:"user"`
	AuthMode  string    `json:"auth_mode"`
	KeyPath   string    `json:"key_path,omitempty"`
	RemoteDir string    `json:"remote_dir,omitempty"`
	Default   bool      `json:"default"`
	CreatedAt time.Time `json:"created_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func toProfileOutput(p model.Profile) profileOutput {
	auth := string(p.AuthMode)
	if auth == "" {
		auth = string(model.AuthModePassword)
	}
	return profileOutput{
		Name:      p.Name,
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		AuthMode:  auth,
		KeyPath:   p.KeyPath,
		RemoteDir: p.RemoteDir,
		Default:   p.Default,
		CreatedAt: p.CreatedAt.UTC(),
	}
}

// PrintProfileList prints profiles in JSON format.
func (j *JSONPrinter) PrintProfileList(profiles []model.Profile) error {
	items := make([]profileOutput, len(profiles))
	for i, p := range profiles {
		items[i] = toProfileOutput(p)
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintProfile prints a single profile in JSON format.
func (j *JSONPrinter) PrintProfile(p model.Profile) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(toProfileOutput(p))
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
