package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RamanVasko/freshkeep/internal/client"
	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
}

func (s staticTokens) AccessToken() (string, bool) { return s.token, s.token != "" }

func newStore(t *testing.T, h http.Handler, token string) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(client.New(srv.URL), staticTokens{token: token})
}

func product(name string, exp model.Date) model.Product {
	return model.Product{
		ID:             uuid.Must(uuid.NewV4()),
		UserID:         uuid.Must(uuid.NewV4()),
		Name:           name,
		ExpirationDate: exp,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestUnauthenticated_FailsFastWithoutNetworkCall(t *testing.T) {
	t.Parallel()

	var hits int32
	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}), "")

	ctx := context.Background()
	_, err := s.ListAll(ctx)
	require.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
	_, err = s.ListExpiring(ctx)
	require.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
	_, err = s.Create(ctx, model.ProductDraft{Name: "milk"})
	require.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
	_, err = s.Update(ctx, uuid.Must(uuid.NewV4()), model.ProductPatch{})
	require.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))
	err = s.Delete(ctx, uuid.Must(uuid.NewV4()))
	require.Equal(t, errs.KindUnauthenticated, errs.KindOf(err))

	require.Equal(t, int32(0), atomic.LoadInt32(&hits))
	lc := s.Lifecycle(OpListAll)
	require.Equal(t, StateRejected, lc.State)
	require.Equal(t, "Not authenticated", lc.Error)
}

func TestListAll_ReplacesCollection(t *testing.T) {
	t.Parallel()

	first := []model.Product{product("milk", model.NewDate(2026, 9, 5))}
	second := []model.Product{product("eggs", model.NewDate(2026, 9, 8)), product("bread", model.NewDate(2026, 9, 2))}
	var calls int32
	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(t, w, first)
			return
		}
		writeJSON(t, w, second)
	}), "tok")

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "eggs", s.Products()[0].Name)
	require.Equal(t, StateFulfilled, s.Lifecycle(OpListAll).State)
}

func TestListAll_FailureKeepsCollection(t *testing.T) {
	t.Parallel()

	var calls int32
	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(t, w, []model.Product{product("milk", model.NewDate(2026, 9, 5))})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database unavailable"}`))
	}), "tok")

	_, err := s.ListAll(context.Background())
	require.NoError(t, err)

	_, err = s.ListAll(context.Background())
	require.Error(t, err)
	require.Equal(t, errs.KindServer, errs.KindOf(err))

	// Last-known-good state survives the rejected refresh.
	require.Len(t, s.Products(), 1)
	lc := s.Lifecycle(OpListAll)
	require.Equal(t, StateRejected, lc.State)
	require.Equal(t, "database unavailable", lc.Error)
}

func TestCreate_AppendsReturnedRecord(t *testing.T) {
	t.Parallel()

	var s *Store
	s = newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			var draft model.ProductDraft
			require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			p := product(draft.Name, draft.ExpirationDate)
			p.Notes = draft.Notes
			w.WriteHeader(http.StatusCreated)
			writeJSON(t, w, p)
		default:
			writeJSON(t, w, s.Products())
		}
	}), "tok")

	draft := model.ProductDraft{Name: "yogurt", ExpirationDate: model.NewDate(2026, 9, 10), Notes: "2 cups"}
	created, err := s.Create(context.Background(), draft)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, "yogurt", created.Name)

	// Round trip: the collection now contains the created record.
	listed, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)
	require.Equal(t, draft.Name, listed[0].Name)
	require.Equal(t, draft.Notes, listed[0].Notes)
	require.True(t, draft.ExpirationDate.Equal(listed[0].ExpirationDate.Time))
}

func TestCreate_MultipartWhenImageAttached(t *testing.T) {
	t.Parallel()

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "cheese", r.FormValue("name"))
		require.Equal(t, "2026-09-20", r.FormValue("expiration_date"))
		_, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		require.Equal(t, "cheese.png", hdr.Filename)
		p := product("cheese", model.NewDate(2026, 9, 20))
		p.ImageURL = "/static/cheese.png"
		w.WriteHeader(http.StatusCreated)
		writeJSON(t, w, p)
	}), "tok")

	created, err := s.Create(context.Background(), model.ProductDraft{
		Name:           "cheese",
		ExpirationDate: model.NewDate(2026, 9, 20),
		Image:          []byte{0x89, 0x50},
		ImageName:      "cheese.png",
	})
	require.NoError(t, err)
	require.Equal(t, "/static/cheese.png", created.ImageURL)
}

func TestUpdate_ReplacesMatchingRecordOnly(t *testing.T) {
	t.Parallel()

	known := product("milk", model.NewDate(2026, 9, 5))
	stranger := product("butter", model.NewDate(2026, 9, 6))

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, []model.Product{known})
		case http.MethodPut:
			var patch model.ProductPatch
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			target := known
			if r.URL.Path == client.APIPrefix+"/products/"+stranger.ID.String() {
				target = stranger
			}
			if patch.Name != nil {
				target.Name = *patch.Name
			}
			writeJSON(t, w, target)
		}
	}), "tok")

	_, err := s.ListAll(context.Background())
	require.NoError(t, err)

	name := "oat milk"
	updated, err := s.Update(context.Background(), known.ID, model.ProductPatch{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "oat milk", updated.Name)
	require.Equal(t, "oat milk", s.Products()[0].Name)

	// An update whose id is not in the collection is not inserted.
	other := "salted butter"
	_, err = s.Update(context.Background(), stranger.ID, model.ProductPatch{Name: &other})
	require.NoError(t, err)
	require.Len(t, s.Products(), 1)
	require.Equal(t, "oat milk", s.Products()[0].Name)
}

func TestDelete_RemovesFromBothCollections(t *testing.T) {
	t.Parallel()

	doomed := product("old milk", model.NewDate(2026, 8, 30))
	keeper := product("rice", model.NewDate(2027, 1, 1))

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == client.APIPrefix+"/products/expiring":
			writeJSON(t, w, []model.Product{doomed})
		default:
			writeJSON(t, w, []model.Product{doomed, keeper})
		}
	}), "tok")

	_, err := s.ListAll(context.Background())
	require.NoError(t, err)
	_, err = s.ListExpiring(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), doomed.ID))

	for _, p := range s.Products() {
		require.NotEqual(t, doomed.ID, p.ID)
	}
	require.Empty(t, s.Expiring())
	require.Len(t, s.Products(), 1)
}

func TestListAll_LastSettledWins(t *testing.T) {
	t.Parallel()

	// Request A is issued first but settles last; request B's response is the
	// one that must survive. This asserts the documented hazard, not an ideal.
	onlyP1 := []model.Product{product("p1", model.NewDate(2026, 9, 5))}
	p1p2 := append(append([]model.Product(nil), onlyP1...), product("p2", model.NewDate(2026, 9, 6)))

	release := make(chan struct{})
	var calls int32
	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release // hold A until B has settled
			writeJSON(t, w, onlyP1)
			return
		}
		writeJSON(t, w, p1p2)
	}), "tok")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.ListAll(context.Background()) // A
	}()
	go func() {
		defer wg.Done()
		// Give A a moment to reach the server first.
		time.Sleep(50 * time.Millisecond)
		_, _ = s.ListAll(context.Background()) // B
		close(release)
	}()
	wg.Wait()

	// A settled last, so A's response overwrote B's.
	require.Len(t, s.Products(), 1)
	require.Equal(t, "p1", s.Products()[0].Name)
}

func TestScanBarcode_MergesIntoDraft(t *testing.T) {
	t.Parallel()

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, model.ScanResult{
			Success: true,
			Message: "Product found",
			ProductData: &model.ScannedProduct{
				Name:    "Dark Chocolate",
				Barcode: body["barcode"],
				Brand:   "Cocoa Co",
			},
		})
	}), "tok")

	res, err := s.ScanBarcode(context.Background(), "4607001770")
	require.NoError(t, err)
	require.True(t, res.Success)

	d := s.Draft()
	require.NotNil(t, d)
	require.Equal(t, "4607001770", d.Barcode)
	require.Equal(t, "Dark Chocolate", d.Name)
}

func TestScanBarcode_KeepsUserEnteredName(t *testing.T) {
	t.Parallel()

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, model.ScanResult{
			Success:     true,
			Message:     "Product found",
			ProductData: &model.ScannedProduct{Name: "Generic Milk", Barcode: "123"},
		})
	}), "tok")

	s.SetDraft(model.ProductDraft{Name: "My milk"})
	_, err := s.ScanBarcode(context.Background(), "123")
	require.NoError(t, err)

	d := s.Draft()
	require.Equal(t, "My milk", d.Name)
	require.Equal(t, "123", d.Barcode)
}

func TestClassifyDraft(t *testing.T) {
	t.Parallel()

	s := New(client.New("http://127.0.0.1:0"), staticTokens{})
	_, ok := s.ClassifyDraft(time.Now())
	require.False(t, ok)

	s.SetDraft(model.ProductDraft{Name: "milk", ExpirationDate: model.NewDate(2026, 3, 12)})
	c, ok := s.ClassifyDraft(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Equal(t, 2, c.DaysUntilExpiration)
	require.True(t, c.IsNearExpiration)
}

func TestListCategories(t *testing.T) {
	t.Parallel()

	s := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, client.APIPrefix+"/categories", r.URL.Path)
		writeJSON(t, w, []model.Category{
			{ID: uuid.Must(uuid.NewV4()), Name: "Dairy", CreatedAt: time.Now().UTC()},
		})
	}), "tok")

	cats, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, "Dairy", s.Categories()[0].Name)
}
