package store

import (
	"context"

	"inventory/api/internal/models"
)

type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// Validate reports ErrInvalidUser when a required field is empty.
func (u NewUser) Validate() error {
	if u.FirstName == "" || u.LastName == "" || u.Email == "" || u.PasswordHash == "" {
		return ErrInvalidUser
	}
	return nil
}

// UserStore owns user records. Email uniqueness is enforced by the store itself.
type UserStore interface {
	CreateUser(ctx context.Context, input NewUser) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, userID string) (models.User, error)
}

type ProductInput struct {
	ProductName string
	Description string
	Category    string
	Amount      int
	Price       float64
}

// ProductPatch carries the fields of a partial update; nil fields are left as they are.
type ProductPatch struct {
	ProductName *string
	Description *string
	Category    *string
	Amount      *int
	Price       *float64
}

func (p ProductPatch) Empty() bool {
	return p.ProductName == nil && p.Description == nil && p.Category == nil && p.Amount == nil && p.Price == nil
}

type ProductStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (models.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, productID string, patch ProductPatch) (models.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}
