package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Cart         []CartEntry        `bson:"cart" json:"-"`
	Addresses    []Address          `bson:"addresses" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// CartEntry is a product reference embedded in the user document.
// A cart holds at most one entry per product.
type CartEntry struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

type Address struct {
	ID      primitive.ObjectID `bson:"_id" json:"_id"`
	Line1   string             `bson:"line1" json:"line1"`
	City    string             `bson:"city" json:"city"`
	State   string             `bson:"state" json:"state"`
	Zip     string             `bson:"zip" json:"zip"`
	Country string             `bson:"country" json:"country"`
}

// Flatten renders the address the way orders store it.
func (a Address) Flatten() string {
	return a.Line1 + ", " + a.City
}

// FindEntry returns the cart entry for productID.
func (u *User) FindEntry(productID primitive.ObjectID) (CartEntry, bool) {
	for _, e := range u.Cart {
		if e.ProductID == productID {
			return e, true
		}
	}
	return CartEntry{}, false
}

func (u *User) FindAddress(id primitive.ObjectID) (Address, bool) {
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}

// UserRef is the public projection of a user joined onto orders.
type UserRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}
