package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ProductRepository using PostgreSQL.
type ProductRepo struct{ db *DB }

// NewProductRepo constructs a product repository.
func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `
id, user_id, name, category_id, barcode, shop_name, purchase_date,
expiration_date, amount, unit, notes, image_url, is_active, created_at, updated_at`

// scanProduct reads one row in productColumns order.
func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		purchase   *time.Time
		expiration time.Time
		amount     *float64
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.CategoryID, &p.Barcode, &p.ShopName,
		&purchase, &expiration, &amount, &p.Unit, &p.Notes, &p.ImageURL,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if purchase != nil {
		p.PurchaseDate = model.DateOf(*purchase)
	}
	p.ExpirationDate = model.DateOf(expiration)
	if amount != nil {
		p.Amount = *amount
	}
	return &p, nil
}

func (r *ProductRepo) list(ctx context.Context, q string, args ...any) ([]model.Product, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListByUser returns all active products of a user, soonest expiration first.
func (r *ProductRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE user_id=$1 AND is_active=true
ORDER BY expiration_date ASC, created_at ASC`
	return r.list(ctx, q, userID)
}

// ListExpiringByUser returns active products expiring within days from today,
// not yet past their date.
func (r *ProductRepo) ListExpiringByUser(ctx context.Context, userID uuid.UUID, days int) ([]model.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE user_id=$1 AND is_active=true
  AND expiration_date >= current_date
  AND expiration_date <= current_date + $2
ORDER BY expiration_date ASC, created_at ASC`
	return r.list(ctx, q, userID, days)
}

// Get returns one product owned by userID.
func (r *ProductRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products WHERE user_id=$1 AND id=$2`
	p, err := scanProduct(r.db.Pool.QueryRow(ctx, q, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a new product row.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `
INSERT INTO products (
  id, user_id, name, category_id, barcode, shop_name, purchase_date,
  expiration_date, amount, unit, notes, image_url, is_active
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.db.Pool.Exec(ctx, q,
		p.ID, p.UserID, p.Name, p.CategoryID, p.Barcode, p.ShopName,
		nullableDate(p.PurchaseDate), p.ExpirationDate.Time, nullableAmount(p.Amount),
		p.Unit, p.Notes, p.ImageURL, p.IsActive,
	)
	return err
}

// Update replaces the mutable columns of an existing row.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	const q = `
UPDATE products SET
  name=$3, category_id=$4, barcode=$5, shop_name=$6, purchase_date=$7,
  expiration_date=$8, amount=$9, unit=$10, notes=$11, image_url=$12,
  is_active=$13, updated_at=now()
WHERE user_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q,
		p.UserID, p.ID, p.Name, p.CategoryID, p.Barcode, p.ShopName,
		nullableDate(p.PurchaseDate), p.ExpirationDate.Time, nullableAmount(p.Amount),
		p.Unit, p.Notes, p.ImageURL, p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the row.
func (r *ProductRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM products WHERE user_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func nullableDate(d model.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func nullableAmount(a float64) *float64 {
	if a == 0 {
		return nil
	}
	return &a
}
