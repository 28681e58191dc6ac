package lib

import (
	"context"
	"fmt"

	"github.com/ferrycli/ferry/internal/app/upload"
)

// Upload starts a batch upload run and returns a handle to it.
//
// The run executes in the background. The returned [Run] exposes the run's
// event stream; consume it until it closes, the last event is always
// [EventRunFinished]. Cancelling ctx stops the run the same way [Run.Cancel]
// does.
//
// Returns [ErrNotFound] if the named profile (or the default profile, when
// none is named and no explicit connection is given) does not exist, or
// [ErrNotValid] if the batch configuration is invalid.
func (c *Client) Upload(ctx context.Context, opts BatchOpts) (*Run, error) {
	sessionCfg, profileRemoteDir, err := c.resolveConnection(ctx, opts.Profile, opts.Connection)
	if err != nil {
		return nil, err
	}

	remoteDir := opts.RemoteDir
	if remoteDir == "" {
		remoteDir = profileRemoteDir
	}

	svc, err := upload.NewService(upload.ServiceConfig{
		Dialer: c.dialer,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := toInternalBatchRequest(opts, *sessionCfg, remoteDir)
	run, err := svc.Start(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return newRun(run), nil
}

// Run is a handle to one in-flight batch upload.
type Run struct {
	run    *upload.Run
	events chan Event
}

func newRun(run *upload.Run) *Run {
	r := &Run{
		run:    run,
		events: make(chan Event, cap(run.Events())),
	}

	// Pump and convert the event stream. Closes when the run ends.
	go func() {
		defer close(r.events)
		for ev := range run.Events() {
			r.events <- fromInternalEvent(ev)
		}
	}()

	return r
}

// ID returns the unique run identifier.
func (r *Run) ID() string { return r.run.ID() }

// Events returns the run's event stream. It is closed after the
// [EventRunFinished] event once the run has fully stopped.
func (r *Run) Events() <-chan Event { return r.events }

// Done is closed when the run has fully stopped.
func (r *Run) Done() <-chan struct{} { return r.run.Done() }

// Cancel requests the run to stop. It never blocks and is safe to call any
// number of times, at any point of the run's life.
func (r *Run) Cancel() { r.run.Cancel() }

// AnswerCheckpoint delivers the decision for a pending checkpoint: true
// continues the run, false stops it.
//
// Returns [ErrNoCheckpointPending] if no checkpoint is pending.
func (r *Run) AnswerCheckpoint(continueRun bool) error {
	return mapError(r.run.AnswerCheckpoint(continueRun))
}
