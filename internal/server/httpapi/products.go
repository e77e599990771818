package httpapi

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/model"
)

// maxUploadBytes bounds multipart request memory use.
const maxUploadBytes = 10 << 20

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	list, err := s.products.List(r.Context(), uid)
	if err != nil {
		writeError(w, err, "Failed to fetch products")
		return
	}
	if list == nil {
		list = []model.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListExpiring(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	list, err := s.products.ListExpiring(r.Context(), uid)
	if err != nil {
		writeError(w, err, "Failed to fetch expiring products")
		return
	}
	if list == nil {
		list = []model.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	p, err := s.products.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, err, "Failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreateProduct accepts either a JSON draft or a multipart form with an
// optional image part.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())

	var draft model.ProductDraft
	var imageURL string
	if isMultipart(r) {
		form, image, imageName, err := parseMultipart(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if draft, err = draftFromForm(form); err != nil {
			writeError(w, err, "Invalid request")
			return
		}
		if len(image) > 0 && s.images != nil {
			if imageURL, err = s.images.Save(imageName, image); err != nil {
				writeDetail(w, http.StatusInternalServerError, "Failed to store image")
				return
			}
		}
	} else if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.products.Create(r.Context(), uid, draft, imageURL)
	if err != nil {
		writeError(w, err, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}

	var patch model.ProductPatch
	var imageURL string
	if isMultipart(r) {
		form, image, imageName, err := parseMultipart(r)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if patch, err = patchFromForm(form); err != nil {
			writeError(w, err, "Invalid request")
			return
		}
		if len(image) > 0 && s.images != nil {
			if imageURL, err = s.images.Save(imageName, image); err != nil {
				writeDetail(w, http.StatusInternalServerError, "Failed to store image")
				return
			}
		}
	} else if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.products.Update(r.Context(), uid, id, patch, imageURL)
	if err != nil {
		writeError(w, err, "Failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err := s.products.Delete(r.Context(), uid, id); err != nil {
		writeError(w, err, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Barcode string `json:"barcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := s.products.Scan(r.Context(), req.Barcode)
	if err != nil {
		writeError(w, err, "Failed to scan barcode")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.products.Categories(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch categories")
		return
	}
	if list == nil {
		list = []model.Category{}
	}
	writeJSON(w, http.StatusOK, list)
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// parseMultipart reads the flat form fields and the optional "image" part.
func parseMultipart(r *http.Request) (map[string]string, []byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, "", err
	}
	form := map[string]string{}
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			form[k] = vs[0]
		}
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		// image part is optional
		return form, nil, "", nil
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, nil, "", err
	}
	return form, data, header.Filename, nil
}

// draftFromForm decodes the flat multipart fields emitted by the client.
func draftFromForm(form map[string]string) (model.ProductDraft, error) {
	var d model.ProductDraft
	d.Name = form["name"]
	d.Barcode = form["barcode"]
	d.ShopName = form["shop_name"]
	d.Unit = form["unit"]
	d.Notes = form["notes"]
	if v, ok := form["category_id"]; ok && v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			return d, errs.New(errs.KindValidation, "Invalid category")
		}
		d.CategoryID = &id
	}
	if v, ok := form["purchase_date"]; ok && v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			return d, errs.New(errs.KindValidation, "Invalid purchase date")
		}
		d.PurchaseDate = date
	}
	if v, ok := form["expiration_date"]; ok && v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			return d, errs.New(errs.KindValidation, "Invalid expiration date")
		}
		d.ExpirationDate = date
	}
	if v, ok := form["amount"]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return d, errs.New(errs.KindValidation, "Invalid amount")
		}
		d.Amount = f
	}
	return d, nil
}

// patchFromForm decodes multipart fields into a partial update; only keys
// present in the form are set.
func patchFromForm(form map[string]string) (model.ProductPatch, error) {
	var p model.ProductPatch
	if v, ok := form["name"]; ok {
		p.Name = &v
	}
	if v, ok := form["barcode"]; ok {
		p.Barcode = &v
	}
	if v, ok := form["shop_name"]; ok {
		p.ShopName = &v
	}
	if v, ok := form["unit"]; ok {
		p.Unit = &v
	}
	if v, ok := form["notes"]; ok {
		p.Notes = &v
	}
	if v, ok := form["category_id"]; ok && v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			return p, errs.New(errs.KindValidation, "Invalid category")
		}
		p.CategoryID = &id
	}
	if v, ok := form["purchase_date"]; ok && v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			return p, errs.New(errs.KindValidation, "Invalid purchase date")
		}
		p.PurchaseDate = &date
	}
	if v, ok := form["expiration_date"]; ok && v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			return p, errs.New(errs.KindValidation, "Invalid expiration date")
		}
		p.ExpirationDate = &date
	}
	if v, ok := form["amount"]; ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, errs.New(errs.KindValidation, "Invalid amount")
		}
		p.Amount = &f
	}
	if v, ok := form["is_active"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, errs.New(errs.KindValidation, "Invalid is_active")
		}
		p.IsActive = &b
	}
	return p, nil
}
