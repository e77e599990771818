package barcode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RamanVasko/freshkeep/internal/errs"
)

func TestResolveFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/4607001770.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Oat Milk",
				"brands": "Oatly",
				"quantity": "1 L",
				"image_url": "https://img.example/oat.jpg"
			}
		}`))
	}))
	defer srv.Close()

	r := NewOpenFoodFacts(srv.URL)
	got, err := r.Resolve(context.Background(), "4607001770")
	require.NoError(t, err)
	assert.Equal(t, "Oat Milk", got.Name)
	assert.Equal(t, "4607001770", got.Barcode)
	assert.Equal(t, "Oatly", got.Brand)
	assert.Equal(t, "1 L", got.Quantity)
	assert.Equal(t, "https://img.example/oat.jpg", got.ImageURL)
}

func TestResolveUnknownCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": 0}`))
	}))
	defer srv.Close()

	r := NewOpenFoodFacts(srv.URL)
	_, err := r.Resolve(context.Background(), "000")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestResolveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewOpenFoodFacts(srv.URL)
	_, err := r.Resolve(context.Background(), "123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrNotFound))
}
