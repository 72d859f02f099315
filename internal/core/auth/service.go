// Package auth exchanges user credentials for a token and manages the
// account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/credential"
	"github.com/neilberkman/eqviz/internal/core/logger"
)

var (
	ErrPasswordMismatch    = errors.New("Passwords do not match.")
	ErrNewPasswordMismatch = errors.New("New passwords do not match.")
	ErrMissingField        = errors.New("missing field")
)

// Fallback texts when the server says nothing more specific
const (
	LoginFailedMessage    = "Login failed. Check connection and credentials."
	RegisterFailedMessage = "Registration failed. Please try again."
	PasswordFailedMessage = "Failed to change password. Please try again."
	UnreachableMessage    = "An unexpected error occurred. Could not connect to the server."
)

// Client is the slice of the gateway auth needs
type Client interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) error
	ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error
}

// identityStore is implemented by stores that remember who logged in
type identityStore interface {
	SetFor(token, username string) error
}

type Service struct {
	client Client
	store  credential.Store
}

func NewService(client Client, store credential.Store) *Service {
	return &Service{client: client, store: store}
}

// Login exchanges username and password for a token and stores it
func (s *Service) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrMissingField)
	}

	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		logger.Warn("auth.login_failed", "username", username, "error", err)
		return err
	}

	if ids, ok := s.store.(identityStore); ok {
		err = ids.SetFor(resp.Token, username)
	} else {
		err = s.store.Set(resp.Token)
	}
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	logger.Info("auth.logged_in", "username", username)
	return nil
}

// Register creates an account. It does not log in.
func (s *Service) Register(ctx context.Context, req api.RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrMissingField)
	}
	if req.Password != req.Password2 {
		return ErrPasswordMismatch
	}
	if err := s.client.Register(ctx, req); err != nil {
		logger.Warn("auth.register_failed", "username", req.Username, "error", err)
		return err
	}
	logger.Info("auth.registered", "username", req.Username)
	return nil
}

// ChangePassword changes the logged-in user's password. The token stays
// valid afterwards.
func (s *Service) ChangePassword(ctx context.Context, req api.ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword1 == "" {
		return fmt.Errorf("%w: old and new password are required", ErrMissingField)
	}
	if req.NewPassword1 != req.NewPassword2 {
		return ErrNewPasswordMismatch
	}
	if err := s.client.ChangePassword(ctx, req); err != nil {
		logger.Warn("auth.change_password_failed", "error", err)
		return err
	}
	logger.Info("auth.password_changed")
	return nil
}

// Logout forgets the credential
func (s *Service) Logout() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	logger.Info("auth.logged_out")
	return nil
}

func (s *Service) Authenticated() bool {
	_, ok := s.store.Get()
	return ok
}

// Message turns an auth error into user-facing text. fallback is one of
// the *FailedMessage constants.
func Message(err error, fallback string) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPasswordMismatch), errors.Is(err, ErrNewPasswordMismatch), errors.Is(err, ErrMissingField):
		return err.Error()
	}
	if kind, ok := api.KindOf(err); ok && kind == api.KindUnreachable {
		return UnreachableMessage
	}
	return api.Describe(err, fallback)
}
