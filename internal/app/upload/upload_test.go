package upload_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ferrycli/ferry/internal/app/upload"
	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session"
	"github.com/ferrycli/ferry/internal/session/sessionmock"
	"github.com/ferrycli/ferry/internal/wait"
)

// waiterFunc lets tests control countdown waits.
type waiterFunc func(ctx context.Context, seconds int, onTick func(remaining int)) bool

func (f waiterFunc) Wait(ctx context.Context, seconds int, onTick func(remaining int)) bool {
	return f(ctx, seconds, onTick)
}

// instantWaiter completes every wait immediately.
func instantWaiter() wait.Waiter {
	return waiterFunc(func(ctx context.Context, seconds int, onTick func(int)) bool {
		return ctx.Err() == nil
	})
}

func testRequest(files []string) model.BatchRequest {
	return model.BatchRequest{
		Session: model.SessionConfig{
			Host:     "example.org",
			Port:     22,
			User:     "deploy",
			Password: "secret",
		},
		Files: files,
	}
}

// tmpFiles creates n real files so the orchestrator's existence check passes.
func tmpFiles(t *testing.T, n int) []string {
	t.Helper()

	dir := t.TempDir()
	files := make([]string, 0, n)
	for i := 0; i < n; i++ {
		f := filepath.Join(dir, fmt.Sprintf("file-%02d.csv", i+1))
		require.NoError(t, os.WriteFile(f, []byte("data"), 0644))
		files = append(files, f)
	}
	return files
}

// drainEvents consumes the whole event stream of a finished run.
func drainEvents(t *testing.T, r *upload.Run) []model.Event {
	t.Helper()

	var events []model.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-r.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for the run to finish")
		}
	}
}

// nextEvent reads one event with a timeout.
func nextEvent(t *testing.T, r *upload.Run) (model.Event, bool) {
	t.Helper()

	select {
	case ev, ok := <-r.Events():
		return ev, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
		return model.Event{}, false
	}
}

func eventsOfKind(events []model.Event, kind model.EventKind) []model.Event {
	var res []model.Event
	for _, ev := range events {
		if ev.Kind == kind {
			res = append(res, ev)
		}
	}
	return res
}

func logsContaining(events []model.Event, substr string) []model.Event {
	var res []model.Event
	for _, ev := range eventsOfKind(events, model.EventLog) {
		if containsStr(ev.Message, substr) {
			res = append(res, ev)
		}
	}
	return res
}

func containsStr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func lastEvent(t *testing.T, events []model.Event) model.Event {
	t.Helper()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		cfg    upload.ServiceConfig
		expErr bool
	}{
		"Valid configuration should create service successfully": {
			cfg: upload.ServiceConfig{
				Dialer: &sessionmock.MockDialer{},
				Waiter: instantWaiter(),
				Logger: log.Noop,
			},
			expErr: false,
		},

		"Missing dialer should fail": {
			cfg: upload.ServiceConfig{
				Waiter: instantWaiter(),
				Logger: log.Noop,
			},
			expErr: true,
		},

		"Missing waiter and logger should use defaults": {
			cfg: upload.ServiceConfig{
				Dialer: &sessionmock.MockDialer{},
			},
			expErr: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			svc, err := upload.NewService(test.cfg)

			if test.expErr {
				assert.Error(err)
				assert.Nil(svc)
			} else {
				assert.NoError(err)
				assert.NotNil(svc)
			}
		})
	}
}

func TestStartInvalidRequest(t *testing.T) {
	assert := assert.New(t)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: &sessionmock.MockDialer{}, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), model.BatchRequest{})
	assert.Error(err)
	assert.Nil(run)
}

func TestRunEmptyBatch(t *testing.T) {
	assert := assert.New(t)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(nil))
	require.NoError(t, err)

	events := drainEvents(t, run)

	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.True(final.Completed)
	assert.Empty(eventsOfKind(events, model.EventConfirmationRequested))
	assert.Empty(logsContaining(events, "Uploading"))
	mSess.AssertExpectations(t)
	mDialer.AssertExpectations(t)
}

func TestRunUploadsAllFilesInOrder(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 5)

	var uploaded []string
	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(5).
		Run(func(args mock.Arguments) { uploaded = append(uploaded, args.String(1)) }).
		Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(files))
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.Equal(files, uploaded)
	assert.Len(logsContaining(events, "Done"), 5)
	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.True(final.Completed)
	mSess.AssertExpectations(t)
}

func TestRunRemoteDirIsJoined(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 1)
	expRemote := "/srv/incoming/" + filepath.Base(files[0])

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, files[0], expRemote).Once().Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	req := testRequest(files)
	req.RemoteDir = "/srv/incoming/"
	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.True(lastEvent(t, events).Completed)
	mSess.AssertExpectations(t)
}

func TestRunInitialConnectFails(t *testing.T) {
	assert := assert.New(t)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(nil, fmt.Errorf("connection refused"))

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(tmpFiles(t, 2)))
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.Empty(logsContaining(events, "Uploading"))
	assert.NotEmpty(logsContaining(events, "Connection failed"))
	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.False(final.Completed)
}

func TestRunHomePathFailureClosesSession(t *testing.T) {
	assert := assert.New(t)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("", fmt.Errorf("sftp channel broken"))
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(tmpFiles(t, 1)))
	require.NoError(t, err)

	events := drainEvents(t, run)

	final := lastEvent(t, events)
	assert.False(final.Completed)
	mSess.AssertExpectations(t)
}

func TestRunCancelDuringStartDelay(t *testing.T) {
	assert := assert.New(t)

	mDialer := &sessionmock.MockDialer{}

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: wait.NewTicking(10 * time.Millisecond)})
	require.NoError(t, err)

	req := testRequest(tmpFiles(t, 2))
	req.Policy.StartDelaySeconds = 3600

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	run.Cancel()
	events := drainEvents(t, run)

	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.False(final.Completed)
	assert.NotEmpty(logsContaining(events, "Stopped during initial delay"))
	mDialer.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything)
}

func TestRunCancelIsIdempotent(t *testing.T) {
	assert := assert.New(t)

	mDialer := &sessionmock.MockDialer{}

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: wait.NewTicking(10 * time.Millisecond)})
	require.NoError(t, err)

	req := testRequest(nil)
	req.Policy.StartDelaySeconds = 3600

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	run.Cancel()
	run.Cancel()
	events := drainEvents(t, run)

	assert.Len(eventsOfKind(events, model.EventRunFinished), 1)
}

func TestRunCancelDuringInterFileDelay(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 3)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	// The inter-file wait blocks until the run is cancelled.
	blockingWaiter := waiterFunc(func(ctx context.Context, seconds int, onTick func(int)) bool {
		<-ctx.Done()
		return false
	})

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: blockingWaiter})
	require.NoError(t, err)

	req := testRequest(files)
	req.Policy.InterFileDelaySeconds = 90

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	// Wait for the first upload to finish, then stop the run.
	for {
		ev, ok := nextEvent(t, run)
		require.True(t, ok)
		if ev.Kind == model.EventLog && containsStr(ev.Message, "Done") {
			break
		}
	}
	run.Cancel()

	events := drainEvents(t, run)
	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.True(final.Completed)
	mSess.AssertNumberOfCalls(t, "Upload", 1)
	mSess.AssertExpectations(t)
}

func TestRunMissingFileIsSkipped(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 2)
	batch := []string{files[0], filepath.Join(t.TempDir(), "missing.csv"), files[1]}

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(2).Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(batch))
	require.NoError(t, err)

	events := drainEvents(t, run)

	skips := logsContaining(events, "Skipping (not found)")
	require.Len(t, skips, 1)
	assert.Contains(skips[0].Message, "[02/3]")
	assert.True(lastEvent(t, events).Completed)
	mSess.AssertExpectations(t)
}

func TestRunUploadErrorDoesNotAbortBatch(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 2)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, files[0], mock.Anything).Once().Return(fmt.Errorf("permission denied"))
	mSess.On("Upload", mock.Anything, files[1], mock.Anything).Once().Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(files))
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.NotEmpty(logsContaining(events, "Upload failed"))
	assert.Len(logsContaining(events, "Done"), 1)
	assert.True(lastEvent(t, events).Completed)
	mSess.AssertExpectations(t)
}

func TestRunCheckpointStops(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 5)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(2).Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	req := testRequest(files)
	req.Policy.CheckpointAfter = 2

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	// Consume until the confirmation request, then stop the run.
	var before []model.Event
	for {
		ev, ok := nextEvent(t, run)
		require.True(t, ok)
		before = append(before, ev)
		if ev.Kind == model.EventConfirmationRequested {
			break
		}
	}
	require.NoError(t, run.AnswerCheckpoint(false))

	events := append(before, drainEvents(t, run)...)

	assert.Len(eventsOfKind(events, model.EventConfirmationRequested), 1)
	assert.Len(logsContaining(events, "Done"), 2)
	assert.NotEmpty(logsContaining(events, "Stopped at checkpoint"))
	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.True(final.Completed)
	mSess.AssertExpectations(t)
}

func TestRunCheckpointContinues(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 5)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(5).Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	req := testRequest(files)
	req.Policy.CheckpointAfter = 2

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	var events []model.Event
	for {
		ev, ok := nextEvent(t, run)
		require.True(t, ok)
		events = append(events, ev)
		if ev.Kind == model.EventConfirmationRequested {
			// The checkpoint fires right after the 2nd attempt, before any
			// 3rd file activity.
			assert.Len(logsContaining(events, "Done"), 2)
			assert.Empty(logsContaining(events, "[03/5]"))
			require.NoError(t, run.AnswerCheckpoint(true))
			break
		}
	}
	events = append(events, drainEvents(t, run)...)

	assert.Len(eventsOfKind(events, model.EventConfirmationRequested), 1)
	assert.Len(logsContaining(events, "Done"), 5)
	assert.True(lastEvent(t, events).Completed)
	mSess.AssertExpectations(t)
}

func TestRunCancelUnblocksPendingCheckpoint(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 3)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Return(true)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	req := testRequest(files)
	req.Policy.CheckpointAfter = 1

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	for {
		ev, ok := nextEvent(t, run)
		require.True(t, ok)
		if ev.Kind == model.EventConfirmationRequested {
			break
		}
	}
	run.Cancel()

	events := drainEvents(t, run)

	assert.NotEmpty(logsContaining(events, "Stopped at checkpoint"))
	assert.True(lastEvent(t, events).Completed)
	mSess.AssertNumberOfCalls(t, "Upload", 1)
}

func TestAnswerCheckpointWithoutPendingCheckpoint(t *testing.T) {
	assert := assert.New(t)

	mDialer := &sessionmock.MockDialer{}

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: wait.NewTicking(10 * time.Millisecond)})
	require.NoError(t, err)

	req := testRequest(nil)
	req.Policy.StartDelaySeconds = 3600

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)
	defer run.Cancel()

	err = run.AnswerCheckpoint(true)
	assert.ErrorIs(err, model.ErrNoCheckpointPending)
}

func TestRunReconnectsWhenSessionDrops(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 5)

	// The first session dies before the 3rd file.
	mSess1 := &sessionmock.MockSession{}
	mSess1.On("HomePath").Once().Return("/home/deploy", nil)
	mSess1.On("IsActive").Twice().Return(true)
	mSess1.On("IsActive").Once().Return(false)
	mSess1.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(2).Return(nil)
	mSess1.On("Close").Once().Return(nil)

	mSess2 := &sessionmock.MockSession{}
	mSess2.On("IsActive").Return(true)
	mSess2.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(3).Return(nil)
	mSess2.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess1, nil)
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess2, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(files))
	require.NoError(t, err)

	events := drainEvents(t, run)

	// The reconnect happens between the 2nd and 3rd upload.
	var sawReconnect bool
	for _, ev := range eventsOfKind(events, model.EventLog) {
		if containsStr(ev.Message, "Reconnected") {
			sawReconnect = true
		}
		if containsStr(ev.Message, "[03/5] Uploading") {
			assert.True(sawReconnect, "reconnect should happen before the 3rd upload")
		}
	}
	assert.True(sawReconnect)
	assert.Len(logsContaining(events, "Done"), 5)
	assert.True(lastEvent(t, events).Completed)
	mSess1.AssertExpectations(t)
	mSess2.AssertExpectations(t)
}

func TestRunReconnectFailureAbortsBatch(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 3)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Once().Return(true)
	mSess.On("IsActive").Once().Return(false)
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(nil, fmt.Errorf("no route to host"))

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	run, err := svc.Start(context.Background(), testRequest(files))
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.NotEmpty(logsContaining(events, "Reconnect failed"))
	assert.Len(logsContaining(events, "Done"), 1)
	final := lastEvent(t, events)
	assert.Equal(model.EventRunFinished, final.Kind)
	assert.True(final.Completed)
	mSess.AssertExpectations(t)
}

func TestRunLongDelayTriggersLivenessCheck(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 2)

	// Drops during the long inter-file delay.
	mSess1 := &sessionmock.MockSession{}
	mSess1.On("HomePath").Once().Return("/home/deploy", nil)
	mSess1.On("IsActive").Once().Return(true) // Pre-upload check for file 1.
	mSess1.On("IsActive").Once().Return(false)
	mSess1.On("Upload", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil)
	mSess1.On("Close").Once().Return(nil)

	mSess2 := &sessionmock.MockSession{}
	mSess2.On("IsActive").Return(true)
	mSess2.On("Upload", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil)
	mSess2.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess1, nil)
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess2, nil)

	var waitedSeconds []int
	w := waiterFunc(func(ctx context.Context, seconds int, onTick func(int)) bool {
		waitedSeconds = append(waitedSeconds, seconds)
		return true
	})

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: w})
	require.NoError(t, err)

	req := testRequest(files)
	req.Policy.InterFileDelaySeconds = 90

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.Equal([]int{90}, waitedSeconds)
	assert.NotEmpty(logsContaining(events, "Reconnecting after long delay"))
	assert.Len(logsContaining(events, "Done"), 2)
	assert.True(lastEvent(t, events).Completed)
	mSess1.AssertExpectations(t)
	mSess2.AssertExpectations(t)
}

func TestRunShortDelaySkipsLivenessCheck(t *testing.T) {
	assert := assert.New(t)

	files := tmpFiles(t, 2)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("IsActive").Times(2).Return(true) // Pre-upload checks only.
	mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Times(2).Return(nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
	require.NoError(t, err)

	req := testRequest(files)
	req.Policy.InterFileDelaySeconds = 5 // Below the reconnect threshold.

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	events := drainEvents(t, run)

	assert.True(lastEvent(t, events).Completed)
	mSess.AssertExpectations(t)
}

func TestRunStartDelayEmitsCountdownTicks(t *testing.T) {
	assert := assert.New(t)

	mSess := &sessionmock.MockSession{}
	mSess.On("HomePath").Once().Return("/home/deploy", nil)
	mSess.On("Close").Once().Return(nil)

	mDialer := &sessionmock.MockDialer{}
	mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: wait.NewTicking(5 * time.Millisecond)})
	require.NoError(t, err)

	req := testRequest(nil)
	req.Policy.StartDelaySeconds = 3

	run, err := svc.Start(context.Background(), req)
	require.NoError(t, err)

	events := drainEvents(t, run)

	countdowns := eventsOfKind(events, model.EventCountdown)
	require.NotEmpty(t, countdowns)
	// Ticks carry the label and decreasing remaining time, the last
	// countdown event clears the display.
	assert.Equal("Starting in", countdowns[0].Label)
	assert.Equal(3, countdowns[0].Remaining)
	last := countdowns[len(countdowns)-1]
	assert.Empty(last.Label)
	assert.Zero(last.Remaining)
	assert.True(lastEvent(t, events).Completed)
}

func TestRunParentContextCancellationBehavesAsCancel(t *testing.T) {
	assert := assert.New(t)

	mDialer := &sessionmock.MockDialer{}

	svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: wait.NewTicking(10 * time.Millisecond)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := testRequest(nil)
	req.Policy.StartDelaySeconds = 3600

	run, err := svc.Start(ctx, req)
	require.NoError(t, err)

	cancel()
	events := drainEvents(t, run)

	assert.False(lastEvent(t, events).Completed)
	mDialer.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything)
}

// Guards the session ownership contract: the handle never leaks, the run
// goroutine closes it on every exit path.
func TestRunSessionClosedOnEveryPath(t *testing.T) {
	tests := map[string]struct {
		setup func(mSess *sessionmock.MockSession, mDialer *sessionmock.MockDialer, files []string)
	}{
		"Natural completion closes the session": {
			setup: func(mSess *sessionmock.MockSession, mDialer *sessionmock.MockDialer, files []string) {
				mSess.On("HomePath").Once().Return("/home/deploy", nil)
				mSess.On("IsActive").Return(true)
				mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			},
		},

		"Upload errors still close the session": {
			setup: func(mSess *sessionmock.MockSession, mDialer *sessionmock.MockDialer, files []string) {
				mSess.On("HomePath").Once().Return("/home/deploy", nil)
				mSess.On("IsActive").Return(true)
				mSess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("boom"))
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			files := tmpFiles(t, 2)

			mSess := &sessionmock.MockSession{}
			mDialer := &sessionmock.MockDialer{}
			mDialer.On("Dial", mock.Anything, mock.Anything).Once().Return(mSess, nil)
			test.setup(mSess, mDialer, files)
			mSess.On("Close").Once().Return(nil)

			svc, err := upload.NewService(upload.ServiceConfig{Dialer: mDialer, Waiter: instantWaiter()})
			require.NoError(t, err)

			run, err := svc.Start(context.Background(), testRequest(files))
			require.NoError(t, err)

			drainEvents(t, run)

			mSess.AssertCalled(t, "Close")

			select {
			case <-run.Done():
			case <-time.After(time.Second):
				t.Fatal("run did not terminate")
			}
		})
	}
}

var _ session.Session = &sessionmock.MockSession{}
var _ session.Dialer = &sessionmock.MockDialer{}
