package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ferrycli/ferry/internal/log"
	"github.com/ferrycli/ferry/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.ProfileRepository.
type Repository struct {
	profiles map[string]model.Profile
	mu       sync.RWMutex
	logger   log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		profiles: make(map[string]model.Profile),
		logger:   cfg.Logger,
	}, nil
}

// CreateProfile creates a new profile in the repository.
func (r *Repository) CreateProfile(ctx context.Context, p model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.Name]; ok {
		return fmt.Errorf("profile %s: %w", p.Name, model.ErrAlreadyExists)
	}

	// The first stored profile becomes the default, mirroring the behavior
	// users expect from a single-profile setup.
	if len(r.profiles) == 0 {
		p.Default = true
	}

	r.profiles[p.Name] = p
	r.logger.Debugf("Created profile: %s", p.Name)
	return nil
}

// GetProfile retrieves a profile by name.
func (r *Repository) GetProfile(ctx context.Context, name string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", name, model.ErrNotFound)
	}
	return &p, nil
}

// ListProfiles returns all profiles sorted by name.
func (r *Repository) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]model.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	return profiles, nil
}

// UpdateProfile updates an existing profile.
func (r *Repository) UpdateProfile(ctx context.Context, p model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.profiles[p.Name]
	if !ok {
		return fmt.Errorf("profile %s: %w", p.Name, model.ErrNotFound)
	}

	// Updates never change the default flag, SetDefaultProfile does.
	p.Default = old.Default
	r.profiles[p.Name] = p
	r.logger.Debugf("Updated profile: %s", p.Name)
	return nil
}

// DeleteProfile deletes a profile by name.
func (r *Repository) DeleteProfile(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; !ok {
		return fmt.Errorf("profile %s: %w", name, model.ErrNotFound)
	}

	delete(r.profiles, name)
	r.logger.Debugf("Deleted profile: %s", name)
	return nil
}

// GetDefaultProfile returns the profile marked as default.
func (r *Repository) GetDefaultProfile(ctx context.Context) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if p.Default {
			return &p, nil
		}
	}

	return nil, fmt.Errorf("default profile: %w", model.ErrNotFound)
}

// SetDefaultProfile marks the named profile as the default.
func (r *Repository) SetDefaultProfile(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[name]; !ok {
		return fmt.Errorf("profile %s: %w", name, model.ErrNotFound)
	}

	for n, p := range r.profiles {
		p.Default = n == name
		r.profiles[n] = p
	}

	r.logger.Debugf("Default profile set to: %s", name)
	return nil
}
