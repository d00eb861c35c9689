package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AddressInput struct {
	Line1   string `json:"line1" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type AccountService struct {
	users repository.UserRepository
}

func NewAccountService(users repository.UserRepository) *AccountService {
	return &AccountService{users: users}
}

func (s *AccountService) Profile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to load user", err)
	}
	return user, nil
}

func (s *AccountService) ListAddresses(ctx context.Context, userID primitive.ObjectID) ([]domain.Address, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []domain.Address{}, nil
	}
	return user.Addresses, nil
}

func (s *AccountService) AddAddress(ctx context.Context, userID primitive.ObjectID, in AddressInput) ([]domain.Address, error) {
	address := domain.Address{
		Line1:   strings.TrimSpace(in.Line1),
		City:    strings.TrimSpace(in.City),
		State:   strings.TrimSpace(in.State),
		Zip:     strings.TrimSpace(in.Zip),
		Country: strings.TrimSpace(in.Country),
	}
	if err := validateStruct(AddressInput{Line1: address.Line1, City: address.City}); err != nil {
		return nil, err
	}

	err := s.users.AddAddress(ctx, userID, address)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to add address", err)
	}
	return s.ListAddresses(ctx, userID)
}

func (s *AccountService) RemoveAddress(ctx context.Context, userID primitive.ObjectID, addressID string) ([]domain.Address, error) {
	id, err := primitive.ObjectIDFromHex(addressID)
	if err != nil {
		return nil, domain.Errorf(domain.ErrNotFound, "Address not found")
	}

	err = s.users.RemoveAddress(ctx, userID, id)
	switch {
	case errors.Is(err, repository.ErrAddressNotFound):
		return nil, domain.Errorf(domain.ErrNotFound, "Address not found")
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	case err != nil:
		return nil, internalError(ctx, "Failed to remove address", err)
	}
	return s.ListAddresses(ctx, userID)
}

func (s *AccountService) DeliverySlots() []domain.DeliverySlot {
	return domain.DeliverySlots()
}
