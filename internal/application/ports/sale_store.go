package ports

import (
	"context"

	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/domain/schema"
)

type SaleStore interface {
	// BeginSale opens a READ COMMITTED transaction on one pooled connection.
	BeginSale(ctx context.Context) (SaleTx, error)
}

type CatalogReader interface {
	// TableColumns lists a table's column names in ordinal order.
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// SaleTx is one in-flight sale. Only the caller that began it may commit or
// roll it back.
type SaleTx interface {
	CatalogReader

	// FetchProducts returns the rows that exist among ids. Missing ids are
	// simply absent. With lock set the rows are locked FOR UPDATE in id order.
	FetchProducts(ctx context.Context, ids []int64, lock bool) ([]sale.ProductSnapshot, error)

	InsertOrder(ctx context.Context, layout schema.Layout, order *sale.Order) (int64, error)
	InsertOrderLine(ctx context.Context, layout schema.Layout, orderID int64, line sale.OrderLine, payment sale.PaymentMethod) error

	// Guarded runs fn under a savepoint. When fn fails the transaction is
	// rolled back to the savepoint and stays usable.
	Guarded(ctx context.Context, name string, fn func() error) error

	// DecrementStock subtracts quantity only while stock stays non-negative
	// and reports rows affected: 0 means the guard refused.
	DecrementStock(ctx context.Context, productID int64, quantity int) (int64, error)

	Commit() error
	Rollback() error
}

type SchemaProber interface {
	Probe(ctx context.Context, reader CatalogReader) schema.OrderSchema
	Invalidate(reason string)
}
