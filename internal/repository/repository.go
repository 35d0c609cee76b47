// Package repository holds the persistence interfaces the services depend
// on, plus the DynamoDB and Redis implementations used in production. All
// items share one table using composite PK/SK keys; uniqueness is enforced
// with guard items written in the same transaction as the record they
// protect.
package repository

import (
	"context"
	"time"

	"github.com/gatehouse/gatehouse/internal/models"
)

// UserRepository is the credential store capability the auth and admin
// services are written against.
type UserRepository interface {
	// Create persists a user atomically with its email and phone
	// uniqueness reservations. Returns apperr.ErrEmailTaken or
	// apperr.ErrPhoneTaken when a live user already holds the value.
	Create(ctx context.Context, user *models.User) error
	// GetByID returns the user even when soft-deleted; callers decide
	// whether a deleted user is acceptable. apperr.ErrNotFound when the
	// item does not exist.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail resolves a live (non-deleted) user only.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update rewrites the user item, moving uniqueness reservations when
	// email or phone changed.
	Update(ctx context.Context, user *models.User) error
	// List returns one page of live users plus the live total.
	List(ctx context.Context, page, perPage int) ([]models.User, int, error)
	// SoftDelete marks the user deleted and releases its reservations.
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// Restore clears the deletion marker and re-acquires reservations;
	// fails with ErrEmailTaken/ErrPhoneTaken when another live user took
	// them in the meantime.
	Restore(ctx context.Context, id string) error
	// HardDelete removes the item and any remaining reservations.
	HardDelete(ctx context.Context, id string) error
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	List(ctx context.Context, page, perPage int) ([]models.Role, int, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Restore(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// SessionStore keeps per-token state: the access/session windows and the
// revocation flag, plus a per-user index for revoke-everywhere.
type SessionStore interface {
	Save(ctx context.Context, rec *models.TokenRecord) error
	// Get returns apperr.ErrNotFound for unknown or lapsed tokens.
	Get(ctx context.Context, jti string) (*models.TokenRecord, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type AuditRepository interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
}
