package ports

import (
	"context"

	"github.com/yuzvak/pdv-service/internal/domain/catalog"
)

type ProductRepository interface {
	FindActiveByID(ctx context.Context, id int64) ([]catalog.Product, error)
	SearchActiveByName(ctx context.Context, term string) ([]catalog.Product, error)
	List(ctx context.Context, limit int) ([]catalog.Product, error)

	Create(ctx context.Context, p catalog.NewProduct) (*catalog.Product, error)
	Update(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error)
	AddStock(ctx context.Context, id int64, quantity int) (*catalog.Product, error)
}

type ProductCache interface {
	// GetProducts returns the generation-bound entry for key along with the
	// lookup result. A miss is filled by passing that entry to SetProducts.
	GetProducts(ctx context.Context, key string) (products []catalog.Product, entry string, hit bool, err error)
	SetProducts(ctx context.Context, entry string, products []catalog.Product) error
	// InvalidateProducts drops every cached product listing.
	InvalidateProducts(ctx context.Context) error
}
