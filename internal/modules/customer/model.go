package customer

import (
	"context"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/address"
	"github.com/matthewtrundle/premieratx-orders/internal/modules/shopify"
)

// Directory is the subset of the commerce platform client the upserter needs.
type Directory interface {
	SearchCustomerByEmail(ctx context.Context, email string) (*shopify.Customer, error)
	CreateCustomer(ctx context.Context, in shopify.Customer) (*shopify.Customer, error)
	UpdateCustomer(ctx context.Context, in shopify.Customer) (*shopify.Customer, error)
}

// Input is everything known about the buyer at checkout.
type Input struct {
	Name         string
	Email        string
	Phone        string
	DeliveryDate string
	DeliveryTime string
	Instructions string
	Address      address.Address
}
