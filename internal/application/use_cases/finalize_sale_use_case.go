package use_cases

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/domain/schema"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
	"github.com/yuzvak/pdv-service/internal/pkg/dberr"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

const cacheInvalidationTimeout = 2 * time.Second

type SaleOptions struct {
	// Timeout bounds the whole transaction. Zero leaves it to the caller's context.
	Timeout time.Duration
	// LockRows reads products FOR UPDATE in ascending id order before writing.
	LockRows bool
}

// FinalizeSaleUseCase runs one sale as a single READ COMMITTED transaction:
// validate, read the ledger, pre-check stock, price, then write the order
// header, each line and its guarded stock decrement, and commit. Any failure
// after begin rolls everything back. Nothing is retried.
type FinalizeSaleUseCase struct {
	store  ports.SaleStore
	prober ports.SchemaProber
	cache  ports.ProductCache
	tracer trace.Tracer
	log    *logger.Logger
	opts   SaleOptions
}

func NewFinalizeSaleUseCase(
	store ports.SaleStore,
	prober ports.SchemaProber,
	cache ports.ProductCache,
	tracer trace.Tracer,
	log *logger.Logger,
	opts SaleOptions,
) *FinalizeSaleUseCase {
	return &FinalizeSaleUseCase{
		store:  store,
		prober: prober,
		cache:  cache,
		tracer: tracer,
		log:    log,
		opts:   opts,
	}
}

func (uc *FinalizeSaleUseCase) FinalizeSale(ctx context.Context, lines []sale.LineRequest, payment string) (order *sale.Order, err error) {
	metrics := monitoring.NewSaleMetrics()
	log := uc.log.ForContext(ctx)

	ctx, span := uc.tracer.Start(ctx, "sale.finalize")
	defer span.End()

	defer func() {
		if err == nil {
			return
		}
		reason := FailureReason(err)
		metrics.RecordFailure(reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		logFailure(log, err, reason, lines)
	}()

	req, err := sale.NewRequest(lines, payment)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("sale.lines", len(req.Lines)),
		attribute.String("sale.payment", req.Payment.Code()),
	)

	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	tx, err := uc.store.BeginSale(ctx)
	if err != nil {
		return nil, domainErrors.NewTransactionError("begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			uc.rollback(log, tx)
		}
	}()

	layout := uc.prober.Probe(ctx, tx)

	ids := req.ProductIDs()
	products, err := uc.fetchProducts(ctx, tx, ids)
	if err != nil {
		return nil, domainErrors.NewTransactionError("fetch_products", err)
	}

	ledger := sale.NewLedger(products)
	if missing := ledger.Missing(ids); len(missing) > 0 {
		return nil, &domainErrors.ProductNotFoundError{Missing: missing}
	}

	if err := ledger.CheckStock(req.Lines); err != nil {
		return nil, err
	}

	order = ledger.Price(req)

	err = uc.write(ctx, tx, "insert_order", &layout, func(l schema.OrderSchema) error {
		id, err := tx.InsertOrder(ctx, l.Order, order)
		order.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("sale.order_id", order.ID))

	if err := uc.applyLines(ctx, tx, &layout, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, domainErrors.NewTransactionError("commit", err)
	}
	committed = true

	units := 0
	for _, line := range order.Lines {
		units += line.Quantity
	}
	metrics.RecordSuccess(units)
	uc.invalidateProductCache(ctx)

	log.Info("Sale completed",
		"order_id", order.ID,
		"total", order.Total.StringFixed(2),
		"payment", order.Payment.Code(),
		"lines", len(order.Lines),
	)

	return order, nil
}

func (uc *FinalizeSaleUseCase) fetchProducts(ctx context.Context, tx ports.SaleTx, ids []int64) ([]sale.ProductSnapshot, error) {
	ctx, span := uc.tracer.Start(ctx, "sale.fetch_products")
	defer span.End()

	span.SetAttributes(attribute.Int("sale.products", len(ids)), attribute.Bool("sale.lock_rows", uc.opts.LockRows))
	return tx.FetchProducts(ctx, ids, uc.opts.LockRows)
}

// applyLines writes each line and immediately decrements its stock, in input
// order. The first refused decrement stops the whole order.
func (uc *FinalizeSaleUseCase) applyLines(ctx context.Context, tx ports.SaleTx, layout *schema.OrderSchema, order *sale.Order) error {
	ctx, span := uc.tracer.Start(ctx, "sale.apply_lines")
	defer span.End()

	for _, line := range order.Lines {
		err := uc.write(ctx, tx, "insert_order_line", layout, func(l schema.OrderSchema) error {
			return tx.InsertOrderLine(ctx, l.OrderLine, order.ID, line, order.Payment)
		})
		if err != nil {
			return err
		}

		affected, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return domainErrors.NewTransactionError("decrement_stock", err)
		}
		if affected == 0 {
			monitoring.RecordStockGuardRejection()
			return &domainErrors.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      line.Name,
				Requested: line.Quantity,
				AtWrite:   true,
			}
		}
	}
	return nil
}

// write runs one insert against layout. A layout served from the prober's
// cache is written under a savepoint: an undefined column then drops the
// cache, re-probes inside this transaction and writes once more with the
// fresh layout, which replaces *layout for the rest of the sale.
func (uc *FinalizeSaleUseCase) write(ctx context.Context, tx ports.SaleTx, op string, layout *schema.OrderSchema, insert func(schema.OrderSchema) error) error {
	var err error
	if layout.Cached {
		err = tx.Guarded(ctx, "order_write", func() error { return insert(*layout) })
		if dberr.IsUndefinedColumn(err) {
			uc.prober.Invalidate("undefined_column")
			*layout = uc.prober.Probe(ctx, tx)
			err = insert(*layout)
		}
	} else {
		err = insert(*layout)
	}
	if err == nil {
		return nil
	}

	if dberr.IsUndefinedColumn(err) {
		uc.prober.Invalidate("undefined_column")
	}
	return domainErrors.NewTransactionError(op, err)
}

// rollback is only reached for a transaction that did begin. A transaction
// already finished by the driver (context cancellation) is not an error.
func (uc *FinalizeSaleUseCase) rollback(log *logger.Logger, tx ports.SaleTx) {
	if err := tx.Rollback(); err != nil {
		monitoring.RecordRollbackFailure()
		log.Error("Failed to roll back sale transaction", "error", err)
	}
}

func (uc *FinalizeSaleUseCase) invalidateProductCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheInvalidationTimeout)
	defer cancel()

	if err := uc.cache.InvalidateProducts(ctx); err != nil {
		uc.log.ForContext(ctx).Warn("Failed to invalidate product cache after sale", "error", err)
	}
}

func logFailure(log *logger.Logger, err error, reason string, lines []sale.LineRequest) {
	var stockErr *domainErrors.InsufficientStockError
	var notFound *domainErrors.ProductNotFoundError
	var txErr *domainErrors.TransactionError

	switch {
	case errors.As(err, &stockErr):
		log.Warn("Sale rejected: insufficient stock",
			"flavor", stockErr.Flavor(),
			"product_id", stockErr.ProductID,
			"available", stockErr.Available,
			"requested", stockErr.Requested,
		)
	case errors.As(err, &notFound):
		log.Warn("Sale rejected: products not found", "missing", notFound.Missing)
	case errors.As(err, &txErr):
		log.Error("Sale transaction failed",
			"op", txErr.Op,
			"reason", reason,
			"sqlstate", dberr.Code(txErr.Err),
			"error", txErr.Err,
			"lines", len(lines),
		)
	default:
		log.Info("Sale request rejected", "reason", reason, "error", err)
	}
}

// FailureReason is the metric label for a failed sale.
func FailureReason(err error) string {
	var stockErr *domainErrors.InsufficientStockError
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		return "validation"
	case errors.Is(err, domainErrors.ErrProductNotFound):
		return "product_not_found"
	case errors.As(err, &stockErr):
		return "insufficient_stock_" + stockErr.Flavor()
	case errors.Is(err, context.DeadlineExceeded), dberr.IsTimeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case dberr.Code(err) == dberr.CodeDeadlockDetected:
		return "deadlock"
	case dberr.IsConflict(err):
		return "serialization"
	default:
		return "transaction_error"
	}
}
