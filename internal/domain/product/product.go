package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// BuildType distinguishes custom-built machines from pre-built product lines.
type BuildType string

const (
	// BuildCustom marks machines assembled to order.
	BuildCustom BuildType = "custom"
	// BuildPrebuild marks factory pre-built machines (Intel, AMD lines).
	BuildPrebuild BuildType = "prebuild"
)

// Product represents a catalog item available for purchase.
//
// ListPrice is the MRP shown struck-through in listings; SellingPrice is
// what the customer actually pays and is never above ListPrice. Products
// with Visible=false are excluded from listings and are not eligible for
// checkout.
type Product struct {
	ID           string
	Name         string
	Description  string
	Category     string
	BuildType    BuildType
	BuildFamily  string
	ListPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Stock        int
	Image        string
	Visible      bool
}

// Repository defines read operations for the product catalog.
//
// Listing and search return only visible products. GetByIDs returns rows
// regardless of visibility so checkout can reject hidden products
// explicitly instead of reporting them as missing.
type Repository interface {
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
}
