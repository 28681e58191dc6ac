package storage

import (
	"context"

	"github.com/ferrycli/ferry/internal/model"
)

// ProfileRepository is the interface for connection profile persistence.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, name string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, p model.Profile) error
	DeleteProfile(ctx context.Context, name string) error

	// GetDefaultProfile returns the profile marked as default, or
	// model.ErrNotFound when there is none.
	GetDefaultProfile(ctx context.Context) (*model.Profile, error)
	// SetDefaultProfile marks the named profile as the default, clearing the
	// flag from any other profile.
	SetDefaultProfile(ctx context.Context, name string) error
}
