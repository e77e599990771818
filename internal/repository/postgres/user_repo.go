package postgres

import (
	"context"
	"errors"

	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User, pwdHash string) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, is_active)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.Email, pwdHash, u.IsActive)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByUsername selects a user and its password hash by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, string, error) {
	const q = `
SELECT id, username, email, pwd_hash, is_active, created_at, updated_at
FROM users WHERE username=$1`
	row := r.db.Pool.QueryRow(ctx, q, username)
	var (
		u    model.User
		hash string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", errs.ErrNotFound
		}
		return nil, "", err
	}
	return &u, hash, nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
SELECT id, username, email, is_active, created_at, updated_at
FROM users WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
