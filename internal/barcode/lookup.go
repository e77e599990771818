// Package barcode resolves product metadata for scanned barcodes through an
// external product database.
package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/model"
)

// DefaultBaseURL is the Open Food Facts product endpoint.
const DefaultBaseURL = "https://world.openfoodfacts.org/api/v0/product"

// Resolver turns a barcode into product metadata.
type Resolver interface {
	// Resolve returns metadata for code, or ErrNotFound when the database
	// has no record for it.
	Resolve(ctx context.Context, code string) (*model.ScannedProduct, error)
}

// OpenFoodFacts is a Resolver backed by the Open Food Facts HTTP API.
type OpenFoodFacts struct {
	baseURL string
	httpc   *http.Client
}

// NewOpenFoodFacts constructs a resolver; an empty baseURL selects the public
// endpoint.
func NewOpenFoodFacts(baseURL string) *OpenFoodFacts {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenFoodFacts{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}
}

// offResponse is the subset of the Open Food Facts payload we read.
type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Quantity    string `json:"quantity"`
		ImageURL    string `json:"image_url"`
	} `json:"product"`
}

// Resolve fetches metadata for code.
func (o *OpenFoodFacts) Resolve(ctx context.Context, code string) (*model.ScannedProduct, error) {
	url := fmt.Sprintf("%s/%s.json", o.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("barcode lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("barcode lookup: unexpected status %d", resp.StatusCode)
	}

	var out offResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("barcode lookup: decode: %w", err)
	}
	if out.Status != 1 || out.Product.ProductName == "" {
		return nil, errs.ErrNotFound
	}
	return &model.ScannedProduct{
		Name:     out.Product.ProductName,
		Barcode:  code,
		Brand:    out.Product.Brands,
		Quantity: out.Product.Quantity,
		ImageURL: out.Product.ImageURL,
	}, nil
}
