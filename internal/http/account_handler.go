package http

import (
	"context"
	"net/http"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountService interface {
	Profile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	ListAddresses(ctx context.Context, userID primitive.ObjectID) ([]domain.Address, error)
	AddAddress(ctx context.Context, userID primitive.ObjectID, in service.AddressInput) ([]domain.Address, error)
	RemoveAddress(ctx context.Context, userID primitive.ObjectID, addressID string) ([]domain.Address, error)
	DeliverySlots() []domain.DeliverySlot
}

type AccountHandler struct {
	account AccountService
}

func NewAccountHandler(account AccountService) *AccountHandler {
	return &AccountHandler{account: account}
}

func (h *AccountHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	addresses, err := h.account.ListAddresses(r.Context(), sess.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

func (h *AccountHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var in service.AddressInput
	if err := decodeJSON(r, &in); err != nil {
		respondInvalidJSON(w)
		return
	}

	addresses, err := h.account.AddAddress(r.Context(), sess.UserID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

func (h *AccountHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	addresses, err := h.account.RemoveAddress(r.Context(), sess.UserID, chi.URLParam(r, "addressId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

func (h *AccountHandler) DeliverySlots(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.account.DeliverySlots())
}
