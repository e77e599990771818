// Package repository defines storage interfaces consumed by services.
package repository

import (
	"context"

	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository persists accounts.
type UserRepository interface {
	// Create inserts a new user; ErrAlreadyExists on username/email collision.
	Create(ctx context.Context, u *model.User, pwdHash string) error
	// GetByUsername returns the user and its password hash.
	GetByUsername(ctx context.Context, username string) (*model.User, string, error)
	// GetByID returns the user by primary key.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// ProductRepository persists products, scoped to their owning user.
type ProductRepository interface {
	// ListByUser returns all active products of a user, soonest expiration first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
	// ListExpiringByUser returns active products expiring within days from today.
	ListExpiringByUser(ctx context.Context, userID uuid.UUID, days int) ([]model.Product, error)
	// Get returns one product by id; ErrNotFound when absent or owned by another user.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Product, error)
	// Create inserts a new product row.
	Create(ctx context.Context, p *model.Product) error
	// Update replaces the mutable columns of an existing row.
	Update(ctx context.Context, p *model.Product) error
	// Delete removes the row; ErrNotFound when nothing matched.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// CategoryRepository reads the shared category taxonomy.
type CategoryRepository interface {
	// List returns all categories ordered by name.
	List(ctx context.Context) ([]model.Category, error)
}
