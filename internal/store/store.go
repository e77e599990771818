// Package store owns the local product collection and keeps it consistent
// with the remote API through asynchronous request/response cycles.
//
// One request lifecycle is tracked per operation kind. Responses are applied
// in settlement order: if two requests of the same kind are in flight, the
// last one to settle wins, regardless of issue order. There is no request
// correlation and no cancellation; this is a documented hazard of the design
// and is asserted by tests rather than hidden.
package store

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/RamanVasko/freshkeep/internal/client"
	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/expiry"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Op names a logical operation kind with its own tracked lifecycle.
type Op string

const (
	OpListAll        Op = "list_all"
	OpListExpiring   Op = "list_expiring"
	OpCreate         Op = "create"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
	OpScanBarcode    Op = "scan_barcode"
	OpListCategories Op = "list_categories"
)

// State is the request lifecycle state machine per operation kind.
type State int

const (
	StateIdle State = iota
	StatePending
	StateFulfilled
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return "idle"
	}
}

// Lifecycle is the exposed per-operation request state. Error is a
// display-ready message, set only when State is Rejected.
type Lifecycle struct {
	State State
	Error string
}

// IsLoading reports whether a request of this kind is in flight.
func (l Lifecycle) IsLoading() bool { return l.State == StatePending }

// TokenSource supplies the bearer token for authorized requests.
// *session.Manager satisfies it.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Store is the resource synchronization store. All exported methods are safe
// for concurrent use; collection state is guarded by one mutex.
type Store struct {
	api    *client.Client
	tokens TokenSource

	mu         sync.Mutex
	products   []model.Product
	expiring   []model.Product
	categories []model.Category
	draft      *model.ProductDraft
	lifecycles map[Op]Lifecycle
}

// New constructs an empty store bound to an executor and a token source.
func New(api *client.Client, tokens TokenSource) *Store {
	return &Store{api: api, tokens: tokens, lifecycles: map[Op]Lifecycle{}}
}

// Lifecycle returns the tracked lifecycle for an operation kind.
func (s *Store) Lifecycle(op Op) Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycles[op]
}

// Products returns a copy of the canonical collection.
func (s *Store) Products() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Product(nil), s.products...)
}

// Expiring returns a copy of the expiring-soon subset.
func (s *Store) Expiring() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Product(nil), s.expiring...)
}

// Categories returns a copy of the fetched category list.
func (s *Store) Categories() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Category(nil), s.categories...)
}

// Draft returns the pending-create draft, or nil when none is staged.
func (s *Store) Draft() *model.ProductDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	d := *s.draft
	return &d
}

// SetDraft stages a pending-create draft.
func (s *Store) SetDraft(d model.ProductDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = &d
}

// ClearDraft discards the pending-create draft.
func (s *Store) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// ClassifyDraft derives expiration state for the staged draft as of now.
// Server-returned products keep their wire-derived fields; only the local
// draft, which the server has never seen, is classified client-side.
func (s *Store) ClassifyDraft(now time.Time) (expiry.Classification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || s.draft.ExpirationDate.IsZero() {
		return expiry.Classification{}, false
	}
	return expiry.Classify(s.draft.ExpirationDate, now), true
}

// begin transitions op to Pending and clears its prior error. It returns the
// bearer token, failing fast with an unauthenticated rejection when the
// session holds none (no network call is made in that case).
func (s *Store) begin(op Op) (string, error) {
	s.mu.Lock()
	s.lifecycles[op] = Lifecycle{State: StatePending}
	s.mu.Unlock()

	tok, ok := s.tokens.AccessToken()
	if !ok {
		err := errs.New(errs.KindUnauthenticated, "Not authenticated")
		s.reject(op, err, "Not authenticated")
		return "", err
	}
	return tok, nil
}

// reject settles op as Rejected with a display-ready message, preferring the
// server-supplied detail over the generic per-operation message.
func (s *Store) reject(op Op, err error, generic string) {
	s.mu.Lock()
	s.lifecycles[op] = Lifecycle{State: StateRejected, Error: errs.Message(err, generic)}
	s.mu.Unlock()
}

// fulfill settles op as Fulfilled and applies the collection effect while
// holding the lock. Settlement unconditionally overwrites the tracked
// lifecycle for the kind: last settled wins.
func (s *Store) fulfill(op Op, apply func()) {
	s.mu.Lock()
	s.lifecycles[op] = Lifecycle{State: StateFulfilled}
	if apply != nil {
		apply()
	}
	s.mu.Unlock()
}

// ListAll fetches the full product collection and replaces it wholesale.
func (s *Store) ListAll(ctx context.Context) ([]model.Product, error) {
	tok, err := s.begin(OpListAll)
	if err != nil {
		return nil, err
	}
	var out []model.Product
	if err := s.api.Do(ctx, http.MethodGet, "/products", tok, nil, &out); err != nil {
		s.reject(OpListAll, err, "Failed to fetch products")
		return nil, err
	}
	s.fulfill(OpListAll, func() { s.products = out })
	return out, nil
}

// ListExpiring fetches the expiring-soon subset and replaces it wholesale.
func (s *Store) ListExpiring(ctx context.Context) ([]model.Product, error) {
	tok, err := s.begin(OpListExpiring)
	if err != nil {
		return nil, err
	}
	var out []model.Product
	if err := s.api.Do(ctx, http.MethodGet, "/products/expiring", tok, nil, &out); err != nil {
		s.reject(OpListExpiring, err, "Failed to fetch expiring products")
		return nil, err
	}
	s.fulfill(OpListExpiring, func() { s.expiring = out })
	return out, nil
}

// Create submits a draft and appends the returned record to the collection.
// A draft carrying an image is sent as multipart, otherwise as JSON.
func (s *Store) Create(ctx context.Context, draft model.ProductDraft) (model.Product, error) {
	tok, err := s.begin(OpCreate)
	if err != nil {
		return model.Product{}, err
	}

	var out model.Product
	if len(draft.Image) > 0 {
		err = s.api.DoMultipart(ctx, http.MethodPost, "/products", tok, draftFields(draft), draft.ImageName, draft.Image, &out)
	} else {
		err = s.api.Do(ctx, http.MethodPost, "/products", tok, draft, &out)
	}
	if err != nil {
		s.reject(OpCreate, err, "Failed to create product")
		return model.Product{}, err
	}
	s.fulfill(OpCreate, func() {
		s.products = append(s.products, out)
		if s.draft != nil {
			s.draft = nil
		}
	})
	return out, nil
}

// Update submits a partial draft for id and replaces the matching record.
// When the collection holds no record with that id, no insert is performed.
func (s *Store) Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) (model.Product, error) {
	tok, err := s.begin(OpUpdate)
	if err != nil {
		return model.Product{}, err
	}

	path := fmt.Sprintf("/products/%s", id)
	var out model.Product
	if len(patch.Image) > 0 {
		err = s.api.DoMultipart(ctx, http.MethodPut, path, tok, patchFields(patch), patch.ImageName, patch.Image, &out)
	} else {
		err = s.api.Do(ctx, http.MethodPut, path, tok, patch, &out)
	}
	if err != nil {
		s.reject(OpUpdate, err, "Failed to update product")
		return model.Product{}, err
	}
	s.fulfill(OpUpdate, func() {
		for i := range s.products {
			if s.products[i].ID == out.ID {
				s.products[i] = out
				break
			}
		}
		for i := range s.expiring {
			if s.expiring[i].ID == out.ID {
				s.expiring[i] = out
				break
			}
		}
	})
	return out, nil
}

// Delete removes the record with id from both the full collection and the
// expiring subset.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tok, err := s.begin(OpDelete)
	if err != nil {
		return err
	}
	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/products/%s", id), tok, nil, nil); err != nil {
		s.reject(OpDelete, err, "Failed to delete product")
		return err
	}
	s.fulfill(OpDelete, func() {
		s.products = dropByID(s.products, id)
		s.expiring = dropByID(s.expiring, id)
	})
	return nil
}

// ScanBarcode resolves barcode metadata and merges it into the staged
// pending-create draft (creating one when none is staged).
func (s *Store) ScanBarcode(ctx context.Context, barcode string) (model.ScanResult, error) {
	tok, err := s.begin(OpScanBarcode)
	if err != nil {
		return model.ScanResult{}, err
	}
	var out model.ScanResult
	body := map[string]string{"barcode": barcode}
	if err := s.api.Do(ctx, http.MethodPost, "/products/scan", tok, body, &out); err != nil {
		s.reject(OpScanBarcode, err, "Failed to scan barcode")
		return model.ScanResult{}, err
	}
	s.fulfill(OpScanBarcode, func() {
		if !out.Success || out.ProductData == nil {
			return
		}
		if s.draft == nil {
			s.draft = &model.ProductDraft{}
		}
		s.draft.Barcode = out.ProductData.Barcode
		if s.draft.Name == "" {
			s.draft.Name = out.ProductData.Name
		}
	})
	return out, nil
}

// ListCategories fetches the category list.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	tok, err := s.begin(OpListCategories)
	if err != nil {
		return nil, err
	}
	var out []model.Category
	if err := s.api.Do(ctx, http.MethodGet, "/categories", tok, nil, &out); err != nil {
		s.reject(OpListCategories, err, "Failed to fetch categories")
		return nil, err
	}
	s.fulfill(OpListCategories, func() { s.categories = out })
	return out, nil
}

func dropByID(ps []model.Product, id uuid.UUID) []model.Product {
	out := ps[:0]
	for _, p := range ps {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// draftFields flattens a draft into multipart form fields.
func draftFields(d model.ProductDraft) map[string]string {
	f := map[string]string{
		"name":            d.Name,
		"expiration_date": d.ExpirationDate.String(),
	}
	if d.CategoryID != nil {
		f["category_id"] = d.CategoryID.String()
	}
	if d.Barcode != "" {
		f["barcode"] = d.Barcode
	}
	if d.ShopName != "" {
		f["shop_name"] = d.ShopName
	}
	if !d.PurchaseDate.IsZero() {
		f["purchase_date"] = d.PurchaseDate.String()
	}
	if d.Amount != 0 {
		f["amount"] = strconv.FormatFloat(d.Amount, 'f', -1, 64)
	}
	if d.Unit != "" {
		f["unit"] = d.Unit
	}
	if d.Notes != "" {
		f["notes"] = d.Notes
	}
	return f
}

// patchFields flattens a partial update into multipart form fields.
func patchFields(p model.ProductPatch) map[string]string {
	f := map[string]string{}
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.CategoryID != nil {
		f["category_id"] = p.CategoryID.String()
	}
	if p.Barcode != nil {
		f["barcode"] = *p.Barcode
	}
	if p.ShopName != nil {
		f["shop_name"] = *p.ShopName
	}
	if p.PurchaseDate != nil {
		f["purchase_date"] = p.PurchaseDate.String()
	}
	if p.ExpirationDate != nil {
		f["expiration_date"] = p.ExpirationDate.String()
	}
	if p.Amount != nil {
		f["amount"] = strconv.FormatFloat(*p.Amount, 'f', -1, 64)
	}
	if p.Unit != nil {
		f["unit"] = *p.Unit
	}
	if p.Notes != nil {
		f["notes"] = *p.Notes
	}
	if p.IsActive != nil {
		f["is_active"] = strconv.FormatBool(*p.IsActive)
	}
	return f
}
