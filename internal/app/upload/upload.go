package upload

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session"
	"github.com/ferrycli/ferry/internal/wait"
)

// eventBufferSize is the event channel capacity. Log and terminal events
// block when the buffer is full (the observer is expected to drain), while
// countdown ticks are dropped instead.
const eventBufferSize = 128

// ServiceConfig is the configuration for the upload service.
type ServiceConfig struct {
	Dialer session.Dialer
	Waiter wait.Waiter
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Dialer == nil {
		return fmt.Errorf("dialer is required")
	}
	if c.Waiter == nil {
		c.Waiter = wait.NewTicking(time.Second)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Upload"})
	return nil
}

// Service orchestrates batch file uploads: it sequences the files of a
// batch over one remote session, handling scheduled starts, paced uploads,
// connection drops and checkpoint confirmations.
type Service struct {
	dialer session.Dialer
	waiter wait.Waiter
	logger log.Logger
}

// NewService creates a new upload service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		dialer: cfg.Dialer,
		waiter: cfg.Waiter,
		logger: cfg.Logger,
	}, nil
}

// Start begins a batch run on its own goroutine and returns the handle the
// observer uses to consume events, cancel and answer checkpoints. The run
// terminates with exactly one run-finished event, after which the event
// channel is closed.
func (s *Service) Start(ctx context.Context, req model.BatchRequest) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		id:        ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		events:    make(chan model.Event, eventBufferSize),
		decisions: make(chan bool, 1),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	r.logger = s.logger.WithValues(log.Kv{"run": r.id})

	go s.run(runCtx, req, r)

	return r, nil
}

// Run is the observer's handle to one in-flight batch. All the orchestrator
// state (the session handle, the loop index) stays on the run goroutine,
// the handle only exchanges messages with it.
type Run struct {
	id        string
	events    chan model.Event
	decisions chan bool
	done      chan struct{}
	cancel    context.CancelFunc
	logger    log.Logger

	mu                sync.Mutex
	checkpointPending bool
}

// ID returns the run ID.
func (r *Run) ID() string { return r.id }

// Events returns the ordered event stream of the run. The channel is closed
// after the run-finished event. The consumer must keep draining it, only
// countdown ticks are dropped when it lags.
func (r *Run) Events() <-chan model.Event { return r.events }

// Done is closed when the run goroutine has terminated and the session is
// released.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel requests cancellation. It is idempotent and returns immediately,
// the run observes it within one countdown tick or one loop iteration. A
// pending checkpoint is unblocked with a synthetic stop decision.
func (r *Run) Cancel() { r.cancel() }

// AnswerCheckpoint delivers the decision for the pending confirmation
// request: true resumes the run, false stops it. It returns
// model.ErrNoCheckpointPending when no checkpoint is waiting.
func (r *Run) AnswerCheckpoint(continueRun bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.checkpointPending {
		return model.ErrNoCheckpointPending
	}
	r.checkpointPending = false

	select {
	case r.decisions <- continueRun:
	default:
	}

	return nil
}

// run executes the whole batch. It is the only goroutine that ever touches
// the session handle.
func (s *Service) run(ctx context.Context, req model.BatchRequest, r *Run) {
	defer close(r.done)
	defer close(r.events)
	defer r.cancel()

	// Scheduled start. Cancelling here ends the run before any connection
	// is made.
	if d := req.Policy.StartDelaySeconds; d > 0 {
		eta := time.Now().Add(time.Duration(d) * time.Second)
		r.log(model.LogLevelInfo, fmt.Sprintf("Upload scheduled to start at %s (in %ds), keep this machine on and connected", eta.Format("15:04:05"), d))

		ok := s.waiter.Wait(ctx, d, func(remaining int) { r.tick("Starting in", remaining, 0) })
		r.clearCountdown()
		if !ok {
			r.log(model.LogLevelWarning, "Stopped during initial delay")
			r.finish(false)
			return
		}
	}

	// Connect. A failed initial connection is fatal for the run, there are
	// no retries at this stage.
	r.log(model.LogLevelInfo, fmt.Sprintf("Connecting to %s:%d...", req.Session.Host, req.Session.Port))
	sess, err := s.dialer.Dial(ctx, req.Session)
	if err != nil {
		r.log(model.LogLevelError, fmt.Sprintf("Connection failed: %v", err))
		r.finish(false)
		return
	}

	home, err := sess.HomePath()
	if err != nil {
		r.closeSession(sess)
		r.log(model.LogLevelError, fmt.Sprintf("Connection failed: %v", err))
		r.finish(false)
		return
	}
	r.log(model.LogLevelInfo, fmt.Sprintf("Connected (remote home: %s)", home))

	sess = s.loop(ctx, req, r, sess)

	// Teardown: best-effort close, never masks the run outcome. From here
	// on the run counts as completed, even when stopped mid-batch.
	r.closeSession(sess)
	r.finish(true)
}

// loop uploads every file of the batch in order. It returns the session
// handle that is live at exit so the caller can release it (reconnects may
// have replaced the original one).
func (s *Service) loop(ctx context.Context, req model.BatchRequest, r *Run, sess session.Session) session.Session {
	remoteDir := strings.TrimRight(req.RemoteDir, "/")
	total := len(req.Files)

	for idx, localPath := range req.Files {
		i := idx + 1

		if ctx.Err() != nil {
			r.log(model.LogLevelWarning, "Stopped by user")
			return sess
		}

		name := filepath.Base(localPath)
		remotePath := name
		if remoteDir != "" {
			remotePath = path.Join(remoteDir, name)
		}

		if _, err := os.Stat(localPath); err != nil {
			// A missing local file is a skip, not a failure.
			r.log(model.LogLevelWarning, fmt.Sprintf("[%02d/%d] Skipping (not found): %s", i, total, name))
		} else {
			// The session may have dropped while waiting, check before using it.
			if !sess.IsActive() {
				r.log(model.LogLevelWarning, "Connection lost, reconnecting...")
				newSess, err := s.reconnect(ctx, req.Session, r, sess)
				if err != nil {
					return sess
				}
				sess = newSess
			}

			r.log(model.LogLevelInfo, fmt.Sprintf("[%02d/%d] Uploading %s -> %s", i, total, name, remotePath))
			if err := sess.Upload(ctx, localPath, remotePath); err != nil {
				// A single file's failure doesn't abort the batch.
				r.log(model.LogLevelError, fmt.Sprintf("[%02d/%d] Upload failed: %v", i, total, err))
			} else {
				r.log(model.LogLevelInfo, fmt.Sprintf("[%02d/%d] Done", i, total))
			}
		}

		// Checkpoint: suspend the run (not the process) until the observer
		// decides whether to continue.
		if cp := req.Policy.CheckpointAfter; cp > 0 && i == cp {
			r.log(model.LogLevelInfo, fmt.Sprintf("Checkpoint reached (%d of %d files attempted)", i, total))
			if !r.requestConfirmation(ctx) {
				r.log(model.LogLevelWarning, "Stopped at checkpoint")
				return sess
			}
			r.log(model.LogLevelInfo, "Continuing...")
		}

		// Inter-file delay, skipped after the last file.
		if d := req.Policy.InterFileDelaySeconds; d > 0 && i < total && ctx.Err() == nil {
			ok := s.waiter.Wait(ctx, d, func(remaining int) { r.tick("Next upload in", remaining, i+1) })
			r.clearCountdown()
			if !ok {
				return sess
			}

			// A delay long enough to drop the session warrants a proactive
			// liveness check before the next upload.
			if d >= req.Policy.ReconnectThreshold() && !sess.IsActive() {
				r.log(model.LogLevelWarning, "Reconnecting after long delay...")
				newSess, err := s.reconnect(ctx, req.Session, r, sess)
				if err != nil {
					return sess
				}
				sess = newSess
			}
		}
	}

	return sess
}

// reconnect opens a replacement session and releases the dead one. Failure
// is fatal for the run and already logged.
func (s *Service) reconnect(ctx context.Context, cfg model.SessionConfig, r *Run, dead session.Session) (session.Session, error) {
	newSess, err := s.dialer.Dial(ctx, cfg)
	if err != nil {
		r.log(model.LogLevelError, fmt.Sprintf("Reconnect failed: %v", err))
		return nil, err
	}

	if err := dead.Close(); err != nil {
		r.logger.Debugf("Could not close dead session: %v", err)
	}

	r.log(model.LogLevelInfo, "Reconnected")
	return newSess, nil
}

// requestConfirmation emits the confirmation request and blocks the run
// until a decision arrives. Cancellation delivers a synthetic stop.
func (r *Run) requestConfirmation(ctx context.Context) bool {
	r.mu.Lock()
	// Drop any stale decision from a previous answer race.
	select {
	case <-r.decisions:
	default:
	}
	r.checkpointPending = true
	r.mu.Unlock()

	r.send(model.ConfirmationRequestedEvent())

	var continueRun bool
	select {
	case d := <-r.decisions:
		continueRun = d
	case <-ctx.Done():
	}

	r.mu.Lock()
	r.checkpointPending = false
	r.mu.Unlock()

	return continueRun
}

func (r *Run) closeSession(sess session.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		r.logger.Debugf("Could not close session: %v", err)
	}
}

func (r *Run) log(level model.LogLevel, message string) {
	switch level {
	case model.LogLevelError:
		r.logger.Errorf("%s", message)
	case model.LogLevelWarning:
		r.logger.Warningf("%s", message)
	default:
		r.logger.Debugf("%s", message)
	}
	r.send(model.LogEvent(level, message))
}

func (r *Run) finish(completed bool) {
	r.logger.Debugf("Run finished (completed: %t)", completed)
	r.send(model.RunFinishedEvent(completed))
}

func (r *Run) send(ev model.Event) {
	r.events <- ev
}

// tick emits a countdown event without blocking: when the observer lags only
// the latest remaining time matters.
func (r *Run) tick(label string, remaining, fileIndex int) {
	select {
	case r.events <- model.CountdownEvent(label, remaining, fileIndex):
	default:
	}
}

func (r *Run) clearCountdown() {
	select {
	case r.events <- model.CountdownClearedEvent():
	default:
	}
}
