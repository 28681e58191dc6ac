// Package sessionmock has mocks for the session package.
package sessionmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ferrycli/ferry/internal/model"
	"github.com/ferrycli/ferry/internal/session"
)

// MockDialer is a mock implementation of session.Dialer.
type MockDialer struct {
	mock.Mock
}

// Dial satisfies session.Dialer.
func (m *MockDialer) Dial(ctx context.Context, cfg model.SessionConfig) (session.Session, error) {
	args := m.Called(ctx, cfg)
	s, _ := args.Get(0).(session.Session)
	return s, args.Error(1)
}

// MockSession is a mock implementation of session.Session.
type MockSession struct {
	mock.Mock
}

// IsActive satisfies session.Session.
func (m *MockSession) IsActive() bool {
	args := m.Called()
	return args.Bool(0)
}

// Upload satisfies session.Session.
func (m *MockSession) Upload(ctx context.Context, localPath, remotePath string) error {
	args := m.Called(ctx, localPath, remotePath)
	return args.Error(0)
}

// HomePath satisfies session.Session.
func (m *MockSession) HomePath() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// Close satisfies session.Session.
func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}
