package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultPaymentMethod = "COD"

// OrderItem is the snapshot of a cart entry taken at order time.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
}

type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID         primitive.ObjectID `bson:"user" json:"user"`
	Items          []OrderItem        `bson:"items" json:"items"`
	TotalAmount    float64            `bson:"totalAmount" json:"totalAmount"`
	Address        string             `bson:"address" json:"address"`
	Slot           string             `bson:"slot" json:"slot"`
	Status         OrderStatus        `bson:"status" json:"status"`
	PaymentMethod  string             `bson:"paymentMethod" json:"paymentMethod"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OrderWithUser is the admin view of an order, with the owner joined in.
type OrderWithUser struct {
	ID            primitive.ObjectID `bson:"_id" json:"_id"`
	User          *UserRef           `bson:"user" json:"user"`
	Items         []OrderItem        `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	Address       string             `bson:"address" json:"address"`
	Slot          string             `bson:"slot" json:"slot"`
	Status        OrderStatus        `bson:"status" json:"status"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewOrderWithUser(o *Order, user *UserRef) *OrderWithUser {
	return &OrderWithUser{
		ID:            o.ID,
		User:          user,
		Items:         o.Items,
		TotalAmount:   o.TotalAmount,
		Address:       o.Address,
		Slot:          o.Slot,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
