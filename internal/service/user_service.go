package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/phrazzld/apiview/internal/store"
)

// CreateUserParams describes a new account.
type CreateUserParams struct {
	Username  string
	Email     string
	Password  string
	Superuser bool
}

// UserService provides account operations used by the API and the CLI.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// CreateUser validates params, hashes the password and stores the user.
	CreateUser(ctx context.Context, params CreateUserParams) (*domain.User, error)

	// Authenticate returns the user when username and password match.
	// Returns ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	logger    *slog.Logger
	db        *sql.DB // nil when the store is not SQL-backed
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService. db may be nil, in which case
// writes go straight to the store without a transaction.
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	db *sql.DB,
	logger *slog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		db:        db,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to retrieve user",
				"error", err,
				"user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// CreateUser creates a new user after checking that the username is free.
// With a database both statements share one transaction.
func (s *UserServiceImpl) CreateUser(ctx context.Context, params CreateUserParams) (*domain.User, error) {
	user, err := domain.NewUser(params.Username, params.Email, params.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	user.IsSuperuser = params.Superuser

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	// The lookup reports a taken name without a failed INSERT; the unique
	// index still decides races between concurrent registrations.
	create := func(ctx context.Context, users store.UserStore) error {
		_, err := users.GetByUsername(ctx, user.Username)
		switch {
		case err == nil:
			return store.ErrUsernameExists
		case !errors.Is(err, store.ErrUserNotFound):
			return err
		}
		return users.Create(ctx, user)
	}

	if s.db != nil {
		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return create(ctx, s.userStore.WithTx(tx))
		})
	} else {
		err = create(ctx, s.userStore)
	}

	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			s.logger.Debug("attempted to create user with existing username",
				"username", user.Username)
			return nil, fmt.Errorf("%w: %s", ErrUserExists, user.Username)
		}
		s.logger.Error("failed to save user",
			"error", err,
			"username", user.Username)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"username", user.Username,
		"superuser", user.IsSuperuser)

	return user, nil
}

// Authenticate checks a username/password pair.
func (s *UserServiceImpl) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("login for unknown username", "username", username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login with wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
