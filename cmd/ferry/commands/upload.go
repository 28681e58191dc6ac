package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/ferrycli/ferry/internal/app/upload"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session/sftp"
	storageio "github.com/ferrycli/ferry/internal/storage/io"
	"github.com/ferrycli/ferry/internal/storage/sqlite"
)

type UploadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	// Target flags.
	profile   string
	host      string
	port      int
	user      string
	auth      string
	password  string
	keyPath   string
	remoteDir string

	// Policy flags.
	startDelay      int
	interFileDelay  int
	checkpointAfter int

	manifestPath string
	files        []string
}

// NewUploadCommand returns the upload command.
func NewUploadCommand(rootCmd *RootCommand, app *kingpin.Application) *UploadCommand {
	c := &UploadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("upload", "Upload a batch of files over SFTP.")

	// Target flags. Without them the default profile is used.
	c.Cmd.Flag("profile", "Stored profile to connect with.").Short('p').StringVar(&c.profile)
	c.Cmd.Flag("host", "Remote host (overrides the profile).").StringVar(&c.host)
	c.Cmd.Flag("port", "Remote port.").Default("22").IntVar(&c.port)
	c.Cmd.Flag("user", "Remote user.").StringVar(&c.user)
	c.Cmd.Flag("auth", "Authentication mode (password, key).").Default("password").EnumVar(&c.auth, "password", "key")
	c.Cmd.Flag("password", "Password for password auth.").StringVar(&c.password)
	c.Cmd.Flag("key", "Private key file for key auth.").StringVar(&c.keyPath)
	c.Cmd.Flag("remote-dir", "Destination directory on the remote side.").StringVar(&c.remoteDir)

	// Policy flags.
	c.Cmd.Flag("start-delay", "Seconds to wait before the run starts.").Default("0").IntVar(&c.startDelay)
	c.Cmd.Flag("delay", "Seconds to wait between consecutive uploads.").Default("0").IntVar(&c.interFileDelay)
	c.Cmd.Flag("checkpoint-after", "Pause for confirmation after that many files (0 disables).").Default("0").IntVar(&c.checkpointAfter)

	c.Cmd.Flag("manifest", "YAML manifest with the file list and run policy.").Short('m').StringVar(&c.manifestPath)
	c.Cmd.Arg("files", "Local files to upload, in order.").StringsVar(&c.files)

	return c
}

func (c UploadCommand) Name() string { return c.Cmd.FullCommand() }

func (c UploadCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	req, err := c.buildRequest(ctx)
	if err != nil {
		return err
	}

	dialer, err := sftp.NewDialer(sftp.DialerConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create dialer: %w", err)
	}

	svc, err := upload.NewService(upload.ServiceConfig{
		Dialer: dialer,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	run, err := svc.Start(ctx, *req)
	if err != nil {
		return fmt.Errorf("could not start batch: %w", err)
	}

	return c.watch(run)
}

// buildRequest resolves the manifest, the stored profile and the CLI flags
// into a single batch request. Explicit flags win over the profile, the
// profile wins over nothing.
func (c UploadCommand) buildRequest(ctx context.Context) (*model.BatchRequest, error) {
	files := c.files
	remoteDir := c.remoteDir
	policy := model.Policy{
		StartDelaySeconds:     c.startDelay,
		InterFileDelaySeconds: c.interFileDelay,
		CheckpointAfter:       c.checkpointAfter,
	}
	profileName := c.profile

	if c.manifestPath != "" {
		if len(c.files) > 0 {
			return nil, fmt.Errorf("file arguments can't be combined with --manifest")
		}

		abs, err := filepath.Abs(c.manifestPath)
		if err != nil {
			return nil, fmt.Errorf("could not resolve manifest path: %w", err)
		}

		repo := storageio.NewManifestYAMLRepository(os.DirFS(filepath.Dir(abs)))
		manifest, err := repo.GetManifest(ctx, filepath.Base(abs))
		if err != nil {
			return nil, fmt.Errorf("could not load manifest: %w", err)
		}

		files = manifest.Files
		if remoteDir == "" {
			remoteDir = manifest.RemoteDir
		}
		if profileName == "" {
			profileName = manifest.Profile
		}

		// Policy flags override the manifest only when set.
		policy = manifest.Policy
		if c.startDelay > 0 {
			policy.StartDelaySeconds = c.startDelay
		}
		if c.interFileDelay > 0 {
			policy.InterFileDelaySeconds = c.interFileDelay
		}
		if c.checkpointAfter > 0 {
			policy.CheckpointAfter = c.checkpointAfter
		}
	}

	session, profileRemoteDir, err := c.resolveSession(ctx, profileName)
	if err != nil {
		return nil, err
	}
	if remoteDir == "" {
		remoteDir = profileRemoteDir
	}

	return &model.BatchRequest{
		Session:   *session,
		RemoteDir: remoteDir,
		Files:     files,
		Policy:    policy,
	}, nil
}

// resolveSession returns the session configuration for the run. It starts
// from the named profile (or the default profile when no host is given) and
// applies the explicit connection flags on top.
func (c UploadCommand) resolveSession(ctx context.Context, profileName string) (*model.SessionConfig, string, error) {
	var cfg model.SessionConfig
	var profileRemoteDir string

	if profileName != "" || c.host == "" {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: c.rootCmd.Logger,
		})
		if err != nil {
			return nil, "", fmt.Errorf("could not create repository: %w", err)
		}
		defer repo.Close()

		var profile *model.Profile
		if profileName != "" {
			profile, err = repo.GetProfile(ctx, profileName)
		} else {
			profile, err = repo.GetDefaultProfile(ctx)
		}
		if err != nil {
			if profileName == "" && errors.Is(err, model.ErrNotFound) {
				return nil, "", fmt.Errorf("no --host given and no default profile configured, save one with 'ferry profile save'")
			}
			return nil, "", fmt.Errorf("could not load profile: %w", err)
		}

		cfg = profile.SessionConfig()
		profileRemoteDir = profile.RemoteDir
	}

	// Explicit flags win over the profile.
	if c.host != "" {
		cfg.Host = c.host
		cfg.Port = c.port
		cfg.AuthMode = model.AuthMode(c.auth)
	}
	if c.user != "" {
		cfg.User = c.user
	}
	if c.password != "" {
		cfg.Password = c.password
	}
	if c.keyPath != "" {
		cfg.KeyPath = c.keyPath
		cfg.AuthMode = model.AuthModeKey
	}

	return &cfg, profileRemoteDir, nil
}

// watch renders the run's event stream on the terminal until the run ends.
// Countdown ticks rewrite a single line, log lines get their own line and
// checkpoints prompt on stdin.
func (c UploadCommand) watch(run *upload.Run) error {
	stdout := c.rootCmd.Stdout
	reader := bufio.NewReader(c.rootCmd.Stdin)

	countdownShown := false
	clearCountdown := func() {
		if countdownShown {
			fmt.Fprintf(stdout, "\r%-70s\r", "")
			countdownShown = false
		}
	}

	completed := false
	for ev := range run.Events() {
		switch ev.Kind {
		case model.EventLog:
			clearCountdown()
			switch ev.Level {
			case model.LogLevelWarning:
				fmt.Fprintf(stdout, "WARNING: %s\n", ev.Message)
			case model.LogLevelError:
				fmt.Fprintf(stdout, "ERROR: %s\n", ev.Message)
			default:
				fmt.Fprintln(stdout, ev.Message)
			}

		case model.EventCountdown:
			if ev.Label == "" {
				clearCountdown()
				continue
			}
			line := fmt.Sprintf("%s %ds...", ev.Label, ev.Remaining)
			if ev.FileIndex > 0 {
				line = fmt.Sprintf("%s %ds (file %d)...", ev.Label, ev.Remaining, ev.FileIndex)
			}
			fmt.Fprintf(stdout, "\r%-70s", line)
			countdownShown = true

		case model.EventConfirmationRequested:
			clearCountdown()
			fmt.Fprint(stdout, "Continue with the remaining files? [y/N]: ")
			line, readErr := reader.ReadString('\n')
			answer := readErr == nil && isYes(line)
			err := run.AnswerCheckpoint(answer)
			if err != nil && !errors.Is(err, model.ErrNoCheckpointPending) {
				return fmt.Errorf("could not answer checkpoint: %w", err)
			}

		case model.EventRunFinished:
			clearCountdown()
			completed = ev.Completed
		}
	}

	if !completed {
		return fmt.Errorf("batch did not run to completion")
	}
	return nil
}

func isYes(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
