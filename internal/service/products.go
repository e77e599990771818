package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/RamanVasko/freshkeep/internal/barcode"
	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/expiry"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/RamanVasko/freshkeep/internal/repository"
)

// ProductService defines operations over a user's tracked products.
type ProductService interface {
	// List returns all active products of the user.
	List(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
	// ListExpiring returns products expiring within the notification window.
	ListExpiring(ctx context.Context, userID uuid.UUID) ([]model.Product, error)
	// Get returns one product by id.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Product, error)
	// Create validates and persists a new product.
	Create(ctx context.Context, userID uuid.UUID, draft model.ProductDraft, imageURL string) (*model.Product, error)
	// Update applies a partial update to an existing product.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.ProductPatch, imageURL string) (*model.Product, error)
	// Delete removes a product.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// Scan resolves barcode metadata from the external product database.
	Scan(ctx context.Context, code string) (model.ScanResult, error)
	// Categories returns the shared category taxonomy.
	Categories(ctx context.Context) ([]model.Category, error)
}

type ProductServiceImpl struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	resolver   barcode.Resolver
	now        func() time.Time
}

// NewProductService constructs ProductService with required dependencies.
func NewProductService(products repository.ProductRepository, categories repository.CategoryRepository, resolver barcode.Resolver) *ProductServiceImpl {
	return &ProductServiceImpl{products: products, categories: categories, resolver: resolver, now: time.Now}
}

// List returns the user's active products with expiration fields computed
// against the current clock.
func (s *ProductServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Product, error) {
	list, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.stamp(list)
	return list, nil
}

// ListExpiring returns products whose expiration falls within the
// notification window, soonest first.
func (s *ProductServiceImpl) ListExpiring(ctx context.Context, userID uuid.UUID) ([]model.Product, error) {
	list, err := s.products.ListExpiringByUser(ctx, userID, expiry.NearExpirationDays)
	if err != nil {
		return nil, err
	}
	s.stamp(list)
	return list, nil
}

// Get returns one product by id.
func (s *ProductServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	expiry.Apply(p, s.now())
	return p, nil
}

// Create validates the draft and persists a new product.
func (s *ProductServiceImpl) Create(ctx context.Context, userID uuid.UUID, draft model.ProductDraft, imageURL string) (*model.Product, error) {
	if draft.Name == "" {
		return nil, errs.New(errs.KindValidation, "Product name is required")
	}
	if draft.ExpirationDate.IsZero() {
		return nil, errs.New(errs.KindValidation, "Expiration date is required")
	}
	if !draft.ExpirationDate.After(model.DateOf(s.now()).Time) {
		return nil, errs.New(errs.KindValidation, "Expiration date must be in the future")
	}
	if draft.Amount < 0 {
		return nil, errs.New(errs.KindValidation, "Amount must be positive")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	p := &model.Product{
		ID:             id,
		UserID:         userID,
		Name:           draft.Name,
		CategoryID:     draft.CategoryID,
		Barcode:        draft.Barcode,
		ShopName:       draft.ShopName,
		PurchaseDate:   draft.PurchaseDate,
		ExpirationDate: draft.ExpirationDate,
		Amount:         draft.Amount,
		Unit:           draft.Unit,
		Notes:          draft.Notes,
		ImageURL:       imageURL,
		IsActive:       true,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	expiry.Apply(p, s.now())
	return p, nil
}

// Update merges the patch onto the stored record and persists it.
func (s *ProductServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch model.ProductPatch, imageURL string) (*model.Product, error) {
	p, err := s.products.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, errs.New(errs.KindValidation, "Product name is required")
		}
		p.Name = *patch.Name
	}
	if patch.CategoryID != nil {
		p.CategoryID = patch.CategoryID
	}
	if patch.Barcode != nil {
		p.Barcode = *patch.Barcode
	}
	if patch.ShopName != nil {
		p.ShopName = *patch.ShopName
	}
	if patch.PurchaseDate != nil {
		p.PurchaseDate = *patch.PurchaseDate
	}
	if patch.ExpirationDate != nil {
		if patch.ExpirationDate.IsZero() {
			return nil, errs.New(errs.KindValidation, "Expiration date is required")
		}
		p.ExpirationDate = *patch.ExpirationDate
	}
	if patch.Amount != nil {
		if *patch.Amount < 0 {
			return nil, errs.New(errs.KindValidation, "Amount must be positive")
		}
		p.Amount = *patch.Amount
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if imageURL != "" {
		p.ImageURL = imageURL
	}
	now := s.now().UTC()
	p.UpdatedAt = &now
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	expiry.Apply(p, s.now())
	return p, nil
}

// Delete removes a product of the user.
func (s *ProductServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.products.Delete(ctx, userID, id)
}

// Scan resolves barcode metadata. An unknown barcode is not an error: the
// result reports success=false so the client can fall back to manual entry.
func (s *ProductServiceImpl) Scan(ctx context.Context, code string) (model.ScanResult, error) {
	if code == "" {
		return model.ScanResult{}, errs.New(errs.KindValidation, "Barcode is required")
	}
	data, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.ScanResult{Success: false, Message: "Product not found in database"}, nil
		}
		return model.ScanResult{}, err
	}
	return model.ScanResult{Success: true, Message: "Product found", ProductData: data}, nil
}

// Categories returns the shared category taxonomy.
func (s *ProductServiceImpl) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

func (s *ProductServiceImpl) stamp(list []model.Product) {
	now := s.now()
	for i := range list {
		expiry.Apply(&list[i], now)
	}
}
