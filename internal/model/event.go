package model

// EventKind represents the type of an orchestrator event.
type EventKind string

const (
	// EventLog carries a human readable log line.
	EventLog EventKind = "log"
	// EventCountdown carries the remaining seconds of an active countdown.
	// A countdown event with an empty label clears the countdown display.
	EventCountdown EventKind = "countdown"
	// EventConfirmationRequested signals the run is paused waiting for a
	// checkpoint decision.
	EventConfirmationRequested EventKind = "confirmation-requested"
	// EventRunFinished is the terminal event of every run.
	EventRunFinished EventKind = "run-finished"
)

// LogLevel represents the severity of a log event.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Event is a message emitted by the orchestrator to its observer. Events are
// emitted in the order the corresponding actions happen; countdown events may
// be dropped when the observer lags, only the latest one matters.
type Event struct {
	Kind EventKind

	// Message and Level are set on EventLog.
	Message string
	Level   LogLevel

	// Label and Remaining are set on EventCountdown. FileIndex carries the
	// 1-based index of the upcoming file for inter-file countdowns (0 when
	// the countdown has no file context).
	Label     string
	Remaining int
	FileIndex int

	// Completed is set on EventRunFinished. It marks that a session and the
	// upload loop were entered, not that every file succeeded: it is false
	// only when the run ended during the pre-start wait or on the initial
	// connect. Observers must use the log events to tell apart user stops
	// from connection aborts.
	Completed bool
}

// LogEvent returns a log event.
func LogEvent(level LogLevel, message string) Event {
	return Event{Kind: EventLog, Level: level, Message: message}
}

// CountdownEvent returns a countdown tick event.
func CountdownEvent(label string, remaining, fileIndex int) Event {
	return Event{Kind: EventCountdown, Label: label, Remaining: remaining, FileIndex: fileIndex}
}

// CountdownClearedEvent returns the event that clears an ended countdown.
func CountdownClearedEvent() Event {
	return Event{Kind: EventCountdown}
}

// ConfirmationRequestedEvent returns a checkpoint confirmation request event.
func ConfirmationRequestedEvent() Event {
	return Event{Kind: EventConfirmationRequested}
}

// RunFinishedEvent returns the terminal event of a run.
func RunFinishedEvent(completed bool) Event {
	return Event{Kind: EventRunFinished, Completed: completed}
}
