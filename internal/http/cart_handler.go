package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartService interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.CartView, error)
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*domain.CartView, error)
	UpdateQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity float64) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*domain.CartView, error)
}

type CartHandler struct {
	cart CartService
}

func NewCartHandler(cart CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type AddItemRequestDTO struct {
	ProductID string    `json:"productId"`
	Quantity  *Quantity `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *Quantity `json:"quantity"`
}

// Quantity accepts a JSON number or a string holding one, such as "3".
// A string that is not a number decodes to NaN; an empty one to 0.
type Quantity float64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*q = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			v = math.NaN()
		}
		*q = Quantity(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = Quantity(v)
	return nil
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	view, err := h.cart.GetCart(r.Context(), sess.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidJSON(w)
		return
	}

	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "Product is required")
		return
	}
	productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}

	view, err := h.cart.AddItem(r.Context(), sess.UserID, productID, requestedQuantity(req.Quantity))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	productID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "productId"))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "Item not found in cart")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_input", "Quantity must be a number")
		return
	}
	quantity := float64(*req.Quantity)
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		respondError(w, http.StatusBadRequest, "invalid_input", "Quantity must be a number")
		return
	}

	view, err := h.cart.UpdateQuantity(r.Context(), sess.UserID, productID, quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// RemoveItem is idempotent, so an id that cannot exist just returns the cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	productID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "productId"))
	if err != nil {
		h.GetCart(w, r)
		return
	}

	view, err := h.cart.RemoveItem(r.Context(), sess.UserID, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// requestedQuantity truncates to a whole count; the service raises anything below 1 to 1.
func requestedQuantity(q *Quantity) int {
	if q == nil {
		return 1
	}
	v := float64(*q)
	if math.IsNaN(v) || v < 1 {
		return 1
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
