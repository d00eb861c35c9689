package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const idempotencyKeyHeader = "Idempotency-Key"

type OrderService interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (primitive.ObjectID, error)
	History(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.OrderWithUser, error)
	UpdateStatus(ctx context.Context, orderID primitive.ObjectID, status string) (*domain.OrderWithUser, error)
}

type ReportService interface {
	SalesReport(ctx context.Context) (*domain.SalesReport, error)
}

type OrderHandler struct {
	orders  OrderService
	reports ReportService
}

func NewOrderHandler(orders OrderService, reports ReportService) *OrderHandler {
	return &OrderHandler{orders: orders, reports: reports}
}

type PlaceOrderRequestDTO struct {
	Address       string `json:"address"`
	Slot          string `json:"slot"`
	PaymentMethod string `json:"paymentMethod"`
}

type PlaceOrderResponse struct {
	Success bool               `json:"success"`
	OrderID primitive.ObjectID `json:"orderId"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// PlaceOrder accepts an optional Idempotency-Key header; retries with the same
// key return the original order id.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidJSON(w)
		return
	}

	orderID, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:         sess.UserID,
		AddressID:      req.Address,
		Slot:           req.Slot,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, PlaceOrderResponse{Success: true, OrderID: orderID})
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.History(r.Context(), sess.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}

	var req UpdateStatusRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidJSON(w)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.SalesReport(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
