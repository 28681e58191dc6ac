package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/printer"
)

func profileFixture() model.Profile {
	createdAt := time.Date(2026, 2, 12, 9, 30, 0, 0, time.UTC)
	return model.Profile{
		Name:      "staging",
		Host:      "sftp.example.com",
		Port:      2222,
		User:      "deploy",
		AuthMode:  model.AuthModeKey,
		KeyPath:   "/home/deploy/.ssh/id_ed25519",
		RemoteDir: "/srv/incoming",
		Default:   true,
		CreatedAt: createdAt,
	}
}

func TestTablePrinterPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintProfile(profileFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Host:        sftp.example.com:2222")
	assert.Contains(t, out, "Auth:        key")
	assert.Contains(t, out, "Key:         /home/deploy/.ssh/id_ed25519")
	assert.Contains(t, out, "Default:     true")
}

func TestTablePrinterPrintProfileList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	other := profileFixture()
	other.Name = "prod"
	other.Default = false

	err := p.PrintProfileList([]model.Profile{profileFixture(), other})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "staging")
	assert.Contains(t, out, "prod")
	assert.Contains(t, out, "*")
}

func TestTablePrinterPrintProfileListEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintProfileList(nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestJSONPrinterPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintProfile(profileFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"name": "staging"`)
	assert.Contains(t, out, `"auth_mode": "key"`)
	assert.Contains(t, out, `"default": true`)
	assert.NotContains(t, out, "password")
}

func TestJSONPrinterPrintProfileList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintProfileList([]model.Profile{profileFixture()})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
	assert.Contains(t, out, `"host": "sftp.example.com"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}

func TestJSONPrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message": "ok"`)
}
