package lib

import (
	"errors"
	"time"

	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session"
)

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when a resource with the same name already exists.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrNotValid is returned on invalid input or configuration.
	ErrNotValid = errors.New("not valid")
	// ErrNoCheckpointPending is returned by [Run.AnswerCheckpoint] when no
	// checkpoint is waiting for a decision.
	ErrNoCheckpointPending = errors.New("no checkpoint pending")
)

// Dialer opens remote sessions for the SDK. The default dialer connects over
// SSH/SFTP; provide a custom one to test without real infrastructure.
type Dialer = session.Dialer

// Session is a connected remote session as seen by a [Dialer].
type Session = session.Session

// AuthMode selects how a connection authenticates.
type AuthMode string

const (
	// AuthPassword authenticates with a plain password.
	AuthPassword AuthMode = "password"
	// AuthKey authenticates with a private key file.
	AuthKey AuthMode = "key"
)

// Connection holds explicit connection settings for a batch or a check, used
// instead of a stored profile.
type Connection struct {
	// Host is the remote host.
	Host string
	// Port is the remote port. 0 means 22.
	Port int
	// User is the remote user.
	User string
	// AuthMode selects password or key auth. Empty means password.
	AuthMode AuthMode
	// Password for password auth.
	Password string
	// KeyPath is the path to a PEM encoded private key file (key auth).
	KeyPath string
	// ConnectTimeout bounds the connection attempt. 0 means the SDK default.
	ConnectTimeout time.Duration
}

// Profile is a stored connection preset.
type Profile struct {
	// Name is the unique profile name.
	Name string
	// Host is the remote host.
	Host string
	// Port is the remote port. 0 means 22.
	Port int
	// User is the remote user.
	User string
	// AuthMode selects password or key auth. Empty means password.
	AuthMode AuthMode
	// Password for password auth.
	Password string
	// KeyPath is the path to a PEM encoded private key file (key auth).
	KeyPath string
	// RemoteDir is the default destination directory for batches using this
	// profile.
	RemoteDir string
	// Default marks the profile batches fall back to when none is named.
	Default bool
	// CreatedAt is when the profile was first saved.
	CreatedAt time.Time
}

// Policy holds the timing and confirmation settings of one batch run.
type Policy struct {
	// StartDelaySeconds delays the whole run, including the initial connect.
	StartDelaySeconds int
	// InterFileDelaySeconds is the pause between consecutive uploads (0 = none).
	InterFileDelaySeconds int
	// CheckpointAfter pauses the run for confirmation after that many files
	// have been attempted (0 = disabled).
	CheckpointAfter int
	// ReconnectThresholdSeconds: an inter-file delay of at least this many
	// seconds triggers a liveness check after the wait. 0 means the default (55).
	ReconnectThresholdSeconds int
}

// BatchOpts describes one batch upload run.
type BatchOpts struct {
	// Profile names the stored profile to connect with. When empty and
	// Connection is nil, the default profile is used.
	Profile string
	// Connection provides explicit connection settings instead of a profile.
	Connection *Connection
	// RemoteDir is the destination directory. Empty means the profile's
	// remote dir, or the session's default location.
	RemoteDir string
	// Files are uploaded in the exact order given, duplicates included.
	// Missing files are skipped with a warning, they don't abort the run.
	Files []string
	// Policy holds the run's timing and confirmation settings.
	Policy Policy
}

// CheckOpts describes a connection test.
type CheckOpts struct {
	// Profile names the stored profile to connect with. When empty and
	// Connection is nil, the default profile is used.
	Profile string
	// Connection provides explicit connection settings instead of a profile.
	Connection *Connection
}

// EventKind identifies the type of a run event.
type EventKind string

const (
	// EventLog carries a human readable log line.
	EventLog EventKind = "log"
	// EventCountdown carries the remaining seconds of an active countdown.
	// A countdown event with an empty label clears the countdown display.
	// Countdown events may be dropped when the consumer lags behind.
	EventCountdown EventKind = "countdown"
	// EventConfirmationRequested signals the run is paused waiting for an
	// [Run.AnswerCheckpoint] call.
	EventConfirmationRequested EventKind = "confirmation-requested"
	// EventRunFinished is the terminal event of every run.
	EventRunFinished EventKind = "run-finished"
)

// LogLevel represents the severity of a log event.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// Event is a message emitted by a running batch.
type Event struct {
	// Kind identifies the event type; it decides which fields are set.
	Kind EventKind
	// Message and Level are set on [EventLog].
	Message string
	Level   LogLevel
	// Label and Remaining are set on [EventCountdown]. FileIndex carries the
	// 1-based index of the upcoming file for inter-file countdowns.
	Label     string
	Remaining int
	FileIndex int
	// Completed is set on [EventRunFinished]. It is false only when the run
	// ended during the pre-start wait or on the initial connect.
	Completed bool
}

// --- Internal conversion helpers ---

func toInternalConnection(c Connection) model.SessionConfig {
	return model.SessionConfig{
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		AuthMode:       model.AuthMode(c.AuthMode),
		Password:       c.Password,
		KeyPath:        c.KeyPath,
		ConnectTimeout: c.ConnectTimeout,
	}
}

func toInternalPolicy(p Policy) model.Policy {
	return model.Policy{
		StartDelaySeconds:         p.StartDelaySeconds,
		InterFileDelaySeconds:     p.InterFileDelaySeconds,
		CheckpointAfter:           p.CheckpointAfter,
		ReconnectThresholdSeconds: p.ReconnectThresholdSeconds,
	}
}

func toInternalBatchRequest(opts BatchOpts, sessionCfg model.SessionConfig, remoteDir string) model.BatchRequest {
	return model.BatchRequest{
		Session:   sessionCfg,
		RemoteDir: remoteDir,
		Files:     opts.Files,
		Policy:    toInternalPolicy(opts.Policy),
	}
}

func toInternalProfile(p Profile) model.Profile {
	return model.Profile{
		Name:      p.Name,
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		AuthMode:  model.AuthMode(p.AuthMode),
		Password:  p.Password,
		KeyPath:   p.KeyPath,
		RemoteDir: p.RemoteDir,
		Default:   p.Default,
		CreatedAt: p.CreatedAt,
	}
}

func fromInternalProfile(p model.Profile) Profile {
	return Profile{
		Name:      p.Name,
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		AuthMode:  AuthMode(p.AuthMode),
		Password:  p.Password,
		KeyPath:   p.KeyPath,
		RemoteDir: p.RemoteDir,
		Default:   p.Default,
		CreatedAt: p.CreatedAt,
	}
}

func fromInternalProfileList(ps []model.Profile) []Profile {
	result := make([]Profile, len(ps))
	for i, p := range ps {
		result[i] = fromInternalProfile(p)
	}
	return result
}

func fromInternalEvent(ev model.Event) Event {
	return Event{
		Kind:      EventKind(ev.Kind),
		Message:   ev.Message,
		Level:     LogLevel(ev.Level),
		Label:     ev.Label,
		Remaining: ev.Remaining,
		FileIndex: ev.FileIndex,
		Completed: ev.Completed,
	}
}

// mapError translates internal sentinel errors to the public ones so callers
// can use errors.Is without importing internal packages.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrNoCheckpointPending):
		return joinErrors(err, ErrNoCheckpointPending)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
