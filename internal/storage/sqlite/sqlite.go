package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.ProfileRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := migrations.Apply(db, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const profileColumns = `name, host, port, user, auth_mode, password, key_path, remote_dir, is_default, created_at`

// CreateProfile creates a new profile in the repository. The first stored
// profile becomes the default.
func (r *Repository) CreateProfile(ctx context.Context, p model.Profile) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COUNT(*) = 0 FROM profiles), ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		p.Name,
		p.Host,
		p.Port,
		p.User,
		string(p.AuthMode),
		p.Password,
		p.KeyPath,
		p.RemoteDir,
		createdAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: profiles.") {
			return fmt.Errorf("profile already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert profile: %w", err)
	}

	r.logger.Debugf("Created profile in repository: %s", p.Name)
	return nil
}

// GetProfile retrieves a profile by name.
func (r *Repository) GetProfile(ctx context.Context, name string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE name = ?`

	p, err := r.scanOne(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", name, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query profile: %w", err)
	}

	return p, nil
}

// ListProfiles returns all profiles sorted by name.
func (r *Repository) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate profiles: %w", err)
	}

	return profiles, nil
}

// UpdateProfile updates an existing profile. The default flag is not
// touched, SetDefaultProfile handles it.
func (r *Repository) UpdateProfile(ctx context.Context, p model.Profile) error {
	query := `
		UPDATE profiles
		SET host = ?, port = ?, user = ?, auth_mode = ?, password = ?, key_path = ?, remote_dir = ?
		WHERE name = ?
	`

	res, err := r.db.ExecContext(
		ctx,
		query,
		p.Host,
		p.Port,
		p.User,
		string(p.AuthMode),
		p.Password,
		p.KeyPath,
		p.RemoteDir,
		p.Name,
	)
	if err != nil {
		return fmt.Errorf("could not update profile: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", p.Name, model.ErrNotFound)
	}

	r.logger.Debugf("Updated profile in repository: %s", p.Name)
	return nil
}

// DeleteProfile deletes a profile by name.
func (r *Repository) DeleteProfile(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("could not delete profile: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", name, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted profile from repository: %s", name)
	return nil
}

// GetDefaultProfile returns the profile marked as default.
func (r *Repository) GetDefaultProfile(ctx context.Context) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE is_default = 1`

	p, err := r.scanOne(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("default profile: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query default profile: %w", err)
	}

	return p, nil
}

// SetDefaultProfile marks the named profile as the default.
func (r *Repository) SetDefaultProfile(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The update flips the flag on every row, so check existence explicitly.
	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM profiles WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("could not check profile existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("profile %s: %w", name, model.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `UPDATE profiles SET is_default = (name = ?)`, name)
	if err != nil {
		return fmt.Errorf("could not update default flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Default profile set to: %s", name)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOne(row rowScanner) (*model.Profile, error) {
	var (
		p         model.Profile
		authMode  string
		isDefault int
		createdAt int64
	)

	err := row.Scan(
		&p.Name,
		&p.Host,
		&p.Port,
		&p.User,
		&authMode,
		&p.Password,
		&p.KeyPath,
		&p.RemoteDir,
		&isDefault,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	p.AuthMode = model.AuthMode(authMode)
	p.Default = isDefault != 0
	p.CreatedAt = time.Unix(createdAt, 0)

	return &p, nil
}
