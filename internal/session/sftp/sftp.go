package sftp

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
	sessionc "github.com/ferrycli/ferry/internal/session"
)

const (
	// DefaultConnectTimeout is the default SSH connection timeout.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultPort is the default SSH port.
	DefaultPort = 22
)

// DialerConfig is the configuration for the SFTP dialer.
type DialerConfig struct {
	// ConnectTimeout overrides the per-session timeout when the session
	// config doesn't carry one.
	ConnectTimeout time.Duration
	// Logger for logging (optional).
	Logger log.Logger
}

func (c *DialerConfig) defaults() error {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "session.SFTP"})
	return nil
}

// Dialer opens SFTP sessions over SSH.
type Dialer struct {
	connectTimeout time.Duration
	logger         log.Logger
}

// NewDialer creates a new SFTP dialer.
func NewDialer(cfg DialerConfig) (*Dialer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Dialer{
		connectTimeout: cfg.ConnectTimeout,
		logger:         cfg.Logger,
	}, nil
}

// Dial opens an authenticated SFTP session.
func (d *Dialer) Dial(ctx context.Context, cfg model.SessionConfig) (sessionc.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	auth, err := authMethod(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = d.connectTimeout
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port))

	// Use a dialer with context for cancellation support.
	var nd net.Dialer
	netConn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", addr, err)
	}

	// Perform SSH handshake over the raw connection.
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshCfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake failed with %s: %w", addr, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not open sftp channel: %w", err)
	}

	d.logger.Debugf("Opened SFTP session with %s", addr)

	return &Session{
		conn:   client,
		sftp:   sftpClient,
		logger: d.logger,
	}, nil
}

func authMethod(cfg model.SessionConfig) (ssh.AuthMethod, error) {
	if cfg.AuthMode == model.AuthModeKey {
		keyBytes, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("could not read private key %s: %w", cfg.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("could not parse private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	}

	return ssh.Password(cfg.Password), nil
}

// Session is an SFTP implementation of session.Session. It keeps one SSH
// connection and one SFTP subsystem channel open for its whole lifetime.
type Session struct {
	conn   *ssh.Client
	sftp   *sftp.Client
	logger log.Logger
}

// IsActive reports connection liveness with an SSH keepalive round trip.
func (s *Session) IsActive() bool {
	_, _, err := s.conn.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// Upload copies a local file to the remote path, overwriting the remote file
// if it already exists.
func (s *Session) Upload(ctx context.Context, localPath, remotePath string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("could not create remote file %s: %w", remotePath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("could not copy to remote file %s: %w", remotePath, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("could not close remote file %s: %w", remotePath, err)
	}

	return nil
}

// HomePath returns the normalized remote home directory.
func (s *Session) HomePath() (string, error) {
	home, err := s.sftp.RealPath(".")
	if err != nil {
		return "", fmt.Errorf("could not resolve remote home: %w", err)
	}
	return home, nil
}

// Close closes the SFTP channel and the SSH connection.
func (s *Session) Close() error {
	if err := s.sftp.Close(); err != nil {
		s.logger.Debugf("Could not close sftp channel: %v", err)
	}
	return s.conn.Close()
}
