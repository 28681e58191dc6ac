package lib

import (
	"context"
	"fmt"

	"github.com/ferrycli/ferry/internal/app/check"
)

// Check tests a connection: it dials the remote side, reads the session's
// home path and closes the session again. It returns the remote home path.
//
// Returns [ErrNotFound] if the named profile (or the default profile, when
// none is named and no explicit connection is given) does not exist.
func (c *Client) Check(ctx context.Context, opts CheckOpts) (string, error) {
	sessionCfg, _, err := c.resolveConnection(ctx, opts.Profile, opts.Connection)
	if err != nil {
		return "", err
	}

	svc, err := check.NewService(check.ServiceConfig{
		Dialer: c.dialer,
		Logger: c.logger,
	})
	if err != nil {
		return "", fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, *sessionCfg)
	if err != nil {
		return "", mapError(err)
	}

	return res.HomePath, nil
}
