package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/imagestore"
	"github.com/fjod/farmfresh/internal/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxProductBody leaves room for the form fields next to a maximum size image.
const maxProductBody = imagestore.MaxImageSize + 1<<20

type CatalogService interface {
	PublicProducts(ctx context.Context, search, categories string) ([]*domain.Product, error)
	PublicCategories(ctx context.Context) ([]*domain.Category, error)
	ListProducts(ctx context.Context, search, category string) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id primitive.ObjectID, in service.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id primitive.ObjectID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id primitive.ObjectID) error
}

type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type CategoryRequestDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *CatalogHandler) PublicProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.PublicProducts(r.Context(), q.Get("search"), q.Get("categories"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) PublicCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.PublicCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.ListProducts(r.Context(), q.Get("search"), q.Get("category"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := readProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "Product not found")
	if !ok {
		return
	}
	in, ok := readProductInput(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "Product not found")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted"})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidJSON(w)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "Category not found")
	if !ok {
		return
	}

	var req CategoryRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidJSON(w)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := objectIDParam(w, r, "Category not found")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted"})
}

func objectIDParam(w http.ResponseWriter, r *http.Request, notFound string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", notFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

var productFields = []string{"name", "category", "description", "price", "stock", "image"}

// readProductInput accepts multipart/form-data with an optional "image" file, or a
// JSON object whose "image" is a URL. Only fields present in the request are set.
func readProductInput(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProductBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err := readMultipartProduct(r)
		if err != nil {
			respondProductBodyError(w, err)
			return in, false
		}
		return in, true
	}

	var raw map[string]json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		respondProductBodyError(w, err)
		return service.ProductInput{}, false
	}

	fields := make(map[string]*string, len(productFields))
	for _, name := range productFields {
		if v, ok := raw[name]; ok {
			fields[name] = jsonFieldString(v)
		}
	}
	return productInputFrom(fields), true
}

func readMultipartProduct(r *http.Request) (service.ProductInput, error) {
	if err := r.ParseMultipartForm(maxProductBody); err != nil {
		return service.ProductInput{}, err
	}
	defer r.MultipartForm.RemoveAll()

	fields := make(map[string]*string, len(productFields))
	for _, name := range productFields {
		if values, ok := r.MultipartForm.Value[name]; ok && len(values) > 0 {
			v := values[0]
			fields[name] = &v
		}
	}
	in := productInputFrom(fields)

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return in, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imagestore.MaxImageSize+1))
	if err != nil {
		return in, err
	}
	in.ImageData = data
	return in, nil
}

func productInputFrom(fields map[string]*string) service.ProductInput {
	return service.ProductInput{
		Name:        fields["name"],
		Category:    fields["category"],
		Description: fields["description"],
		Price:       fields["price"],
		Stock:       fields["stock"],
		ImageURL:    fields["image"],
	}
}

// jsonFieldString renders a JSON value as form text. Strings are unquoted and
// null becomes empty; numbers and anything else are kept verbatim.
func jsonFieldString(raw json.RawMessage) *string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	text := strings.TrimSpace(string(raw))
	return &text
}

func respondProductBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusBadRequest, "invalid_input", "Image must be 5 MB or smaller")
		return
	}
	respondError(w, http.StatusBadRequest, "invalid_input", "Invalid product form")
}
