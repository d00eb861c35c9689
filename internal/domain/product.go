package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Description string             `bson:"description" json:"description"`
	Image       string             `bson:"image" json:"image"`
	Stock       int                `bson:"stock" json:"stock"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductUpdate carries a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string
	Category    *string
	Price       *float64
	Description *string
	Image       *string
	Stock       *int
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Category == nil && u.Price == nil &&
		u.Description == nil && u.Image == nil && u.Stock == nil
}

type ProductFilter struct {
	Search     string
	Categories []string
}
