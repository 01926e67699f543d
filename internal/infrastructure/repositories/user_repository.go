package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/echosys/storagecheck/internal/core/domain/user"
	"github.com/echosys/storagecheck/internal/core/ports"
	"github.com/echosys/storagecheck/internal/infrastructure/db"
	"github.com/echosys/storagecheck/internal/utils"
)

// UserRepository implements the user store interface over Postgres.
type UserRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(database *db.Database, logger *logrus.Logger) ports.UserStore {
	return &UserRepository{
		db:     database,
		logger: logger,
	}
}

// Version returns the server version string.
func (r *UserRepository) Version(ctx context.Context) (string, error) {
	var version string
	if err := r.db.DB.GetContext(ctx, &version, `SELECT version()`); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}

// CountUsers returns the number of rows in the users table.
func (r *UserRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CountDevices returns the number of rows in the devices table.
func (r *UserRepository) CountDevices(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM devices`); err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}

// EnsureSentinelUser inserts the fixed sentinel user, skipping on a
// username conflict. created is false when the row already existed.
func (r *UserRepository) EnsureSentinelUser(ctx context.Context) (*uuid.UUID, bool, error) {
	hash, err := utils.HashPassword(user.SentinelPassword)
	if err != nil {
		return nil, false, err
	}

	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err = r.db.DB.QueryRowContext(ctx, query,
		user.SentinelUsername, user.SentinelEmail, hash, user.RoleUser).Scan(&id)
	if err == sql.ErrNoRows {
		// Conflict-skip: the sentinel already exists.
		if r.logger != nil {
			r.logger.WithField("username", user.SentinelUsername).Debug("db: sentinel user already present")
		}
		return nil, false, nil
	}
	if err != nil {
		if r.logger != nil {
			r.logger.WithField("username", user.SentinelUsername).WithError(err).Error("db: failed to insert sentinel user")
		}
		return nil, false, fmt.Errorf("failed to insert sentinel user: %w", err)
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"username": user.SentinelUsername, "user_id": id}).Info("db: sentinel user created")
	}
	return &id, true, nil
}

// RecentUsers returns up to limit users ordered by creation time descending.
func (r *UserRepository) RecentUsers(ctx context.Context, limit int) ([]user.User, error) {
	var users []user.User
	query := `
		SELECT id, username, email, role, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.DB.SelectContext(ctx, &users, query, limit); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to list recent users")
		}
		return nil, fmt.Errorf("failed to list recent users: %w", err)
	}
	return users, nil
}

// Close releases the underlying database handle.
func (r *UserRepository) Close() error {
	return r.db.Close()
}
