package ports

import (
	"context"

	"github.com/echosys/storagecheck/internal/core/domain/user"
	"github.com/google/uuid"
)

// UserStore is the slice of the relational store the checker consumes.
type UserStore interface {
	// Version returns the server's version string.
	Version(ctx context.Context) (string, error)
	// CountUsers returns the number of rows in the users table.
	CountUsers(ctx context.Context) (int64, error)
	// CountDevices returns the number of rows in the devices table.
	CountDevices(ctx context.Context) (int64, error)
	// EnsureSentinelUser inserts the fixed sentinel user if absent.
	// created is false when the username already existed; the existing
	// row is never overwritten.
	EnsureSentinelUser(ctx context.Context) (id *uuid.UUID, created bool, err error)
	// RecentUsers returns up to limit users ordered by creation time descending.
	RecentUsers(ctx context.Context, limit int) ([]user.User, error)
	Close() error
}
