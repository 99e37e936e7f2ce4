package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/store"
)

const userColumns = `id, username, email, hashed_password, is_superuser, created_at, updated_at`

// PostgresUserStore implements store.UserStore on a PostgreSQL database.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a user store over a database connection or
// transaction managed by the caller. If logger is nil, slog.Default() is used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// Create implements store.UserStore.Create.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("%w: nil user", store.ErrInvalidEntity)
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.HashedPassword, user.IsSuperuser,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			s.logger.Debug("username already taken", slog.String("username", user.Username))
			return store.ErrUsernameExists
		}
		s.logger.Error("failed to insert user",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("insert user: %w", MapError(err))
	}

	s.logger.Debug("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanUser(row, slog.String("user_id", id.String()))
}

// GetByUsername implements store.UserStore.GetByUsername.
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return s.scanUser(row, slog.String("username", username))
}

// Delete implements store.UserStore.Delete.
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete user",
			slog.String("user_id", id.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("delete user: %w", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// WithTx returns a store bound to tx. The logger is shared.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

func (s *PostgresUserStore) scanUser(row *sql.Row, key slog.Attr) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.HashedPassword,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		s.logger.Error("failed to load user", key, slog.String("error", err.Error()))
		return nil, fmt.Errorf("select user: %w", MapError(err))
	}
	return &user, nil
}
