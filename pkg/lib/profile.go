package lib

import (
	"context"
	"errors"
	"time"

	"github.com/ferrycli/ferry/internal/model"
)

// SaveProfile creates the profile, or updates it when one with the same name
// already exists. The profile's Default field is ignored on updates, use
// [Client.SetDefaultProfile] to change the default.
//
// Returns [ErrNotValid] if the profile is invalid.
func (c *Client) SaveProfile(ctx context.Context, profile Profile) error {
	p := toInternalProfile(profile)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return mapError(err)
	}

	err := c.repo.CreateProfile(ctx, p)
	if errors.Is(err, model.ErrAlreadyExists) {
		return mapError(c.repo.UpdateProfile(ctx, p))
	}
	return mapError(err)
}

// GetProfile returns a stored profile by name.
//
// Returns [ErrNotFound] if the profile does not exist.
func (c *Client) GetProfile(ctx context.Context, name string) (*Profile, error) {
	p, err := c.repo.GetProfile(ctx, name)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalProfile(*p)
	return &result, nil
}

// ListProfiles returns all stored profiles sorted by name.
func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	ps, err := c.repo.ListProfiles(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalProfileList(ps), nil
}

// RemoveProfile deletes a stored profile.
//
// Returns [ErrNotFound] if the profile does not exist.
func (c *Client) RemoveProfile(ctx context.Context, name string) error {
	return mapError(c.repo.DeleteProfile(ctx, name))
}

// GetDefaultProfile returns the default profile.
//
// Returns [ErrNotFound] if no default profile is configured.
func (c *Client) GetDefaultProfile(ctx context.Context) (*Profile, error) {
	p, err := c.repo.GetDefaultProfile(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalProfile(*p)
	return &result, nil
}

// SetDefaultProfile marks the named profile as the default one, clearing the
// flag from any other profile.
//
// Returns [ErrNotFound] if the profile does not exist.
func (c *Client) SetDefaultProfile(ctx context.Context, name string) error {
	return mapError(c.repo.SetDefaultProfile(ctx, name))
}
