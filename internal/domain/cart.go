package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

type ProductSummary struct {
	ID       primitive.ObjectID `json:"_id"`
	Name     string             `json:"name"`
	Price    float64            `json:"price"`
	Image    string             `json:"image"`
	Category string             `json:"category"`
	Stock    int                `json:"stock"`
}

type CartLine struct {
	Product  ProductSummary `json:"product"`
	Quantity int            `json:"quantity"`
	Subtotal float64        `json:"subtotal"`
}

// CartView is the derived cart returned to clients, recomputed from current product prices.
type CartView struct {
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
}
