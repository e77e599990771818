package postgres

import (
	"context"

	"github.com/RamanVasko/freshkeep/internal/model"
)

// CategoryRepo implements CategoryRepository using PostgreSQL.
type CategoryRepo struct{ db *DB }

// NewCategoryRepo constructs a category repository.
func NewCategoryRepo(db *DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	const q = `SELECT id, name, parent_id, created_at FROM categories ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
