package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/domain/schema"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
)

const columnsQuery = `
	SELECT column_name
	FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1
	ORDER BY ordinal_position
`

type SaleStore struct {
	db *sql.DB
}

var _ ports.SaleStore = (*SaleStore)(nil)

func NewSaleStore(conn *Connection) *SaleStore {
	return &SaleStore{db: conn.GetDB()}
}

func (s *SaleStore) BeginSale(ctx context.Context) (ports.SaleTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, errors.Wrap(err, "begin sale transaction")
	}
	return &saleTx{tx: tx}, nil
}

type saleTx struct {
	tx *sql.Tx
}

// TableColumns runs under a savepoint so a failed catalog read leaves the
// sale transaction usable for the fallback layout.
func (t *saleTx) TableColumns(ctx context.Context, table string) ([]string, error) {
	var columns []string
	err := t.Guarded(ctx, "schema_probe", func() error {
		rows, err := monitoring.InstrumentQuery(ctx, t.tx, "SELECT", "information_schema.columns", columnsQuery, table)
		if err != nil {
			return err
		}
		columns, err = scanColumns(rows)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list columns of %s", table)
	}
	return columns, nil
}

func (t *saleTx) Guarded(ctx context.Context, name string, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return errors.Wrapf(err, "savepoint %s", name)
	}

	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Wrapf(rbErr, "rollback to savepoint %s", name)
		}
		return err
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return errors.Wrapf(err, "release savepoint %s", name)
	}
	return nil
}

func (t *saleTx) FetchProducts(ctx context.Context, ids []int64, lock bool) ([]sale.ProductSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args := productsQuery(ids, lock)
	rows, err := monitoring.InstrumentQuery(ctx, t.tx, "SELECT", "produtos", query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	defer rows.Close()

	products := make([]sale.ProductSnapshot, 0, len(ids))
	for rows.Next() {
		var p sale.ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}

	return products, nil
}

func productsQuery(ids []int64, lock bool) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := "SELECT id, nome, preco, estoque FROM produtos WHERE id IN (" +
		strings.Join(placeholders, ", ") + ") ORDER BY id"
	if lock {
		query += " FOR UPDATE"
	}
	return query, args
}

func (t *saleTx) InsertOrder(ctx context.Context, layout schema.Layout, order *sale.Order) (int64, error) {
	query, args := orderInsert(layout, order)

	var id int64
	row := monitoring.InstrumentQueryRow(ctx, t.tx, "INSERT", schema.OrderTable, query, args...)
	if err := row.Scan(&id); err != nil {
		return 0, errors.Wrap(err, "insert order")
	}
	return id, nil
}

// orderInsert includes only the columns the layout reports.
func orderInsert(layout schema.Layout, order *sale.Order) (string, []interface{}) {
	var columns, values []string
	var args []interface{}

	if col, ok := layout.Column(schema.RoleTimestamp); ok {
		columns = append(columns, pq.QuoteIdentifier(col))
		values = append(values, "NOW()")
	}
	if col, ok := layout.Column(schema.RoleTotal); ok {
		args = append(args, order.Total)
		columns = append(columns, pq.QuoteIdentifier(col))
		values = append(values, "$"+strconv.Itoa(len(args)))
	}
	if col, ok := layout.Column(schema.RolePayment); ok {
		args = append(args, order.Payment.Code())
		columns = append(columns, pq.QuoteIdentifier(col))
		values = append(values, "$"+strconv.Itoa(len(args)))
	}

	if len(columns) == 0 {
		return "INSERT INTO " + schema.OrderTable + " DEFAULT VALUES RETURNING id", nil
	}
	return "INSERT INTO " + schema.OrderTable + " (" + strings.Join(columns, ", ") +
		") VALUES (" + strings.Join(values, ", ") + ") RETURNING id", args
}

func (t *saleTx) InsertOrderLine(ctx context.Context, layout schema.Layout, orderID int64, line sale.OrderLine, payment sale.PaymentMethod) error {
	query, args := orderLineInsert(layout, orderID, line, payment)

	if _, err := monitoring.InstrumentExec(ctx, t.tx, "INSERT", schema.OrderLineTable, query, args...); err != nil {
		return errors.Wrapf(err, "insert order line for product %d", line.ProductID)
	}
	return nil
}

func orderLineInsert(layout schema.Layout, orderID int64, line sale.OrderLine, payment sale.PaymentMethod) (string, []interface{}) {
	columns := []string{"pedido_id", "produto_id", "quantidade", "preco_unitario"}
	values := []string{"$1", "$2", "$3", "$4"}
	args := []interface{}{orderID, line.ProductID, line.Quantity, line.UnitPrice}

	if col, ok := layout.Column(schema.RolePayment); ok {
		columns = append(columns, pq.QuoteIdentifier(col))
		values = append(values, "$5")
		args = append(args, payment.Code())
	}

	return "INSERT INTO " + schema.OrderLineTable + " (" + strings.Join(columns, ", ") +
		") VALUES (" + strings.Join(values, ", ") + ")", args
}

const decrementStockQuery = `
	UPDATE produtos
	SET estoque = estoque - $1
	WHERE id = $2 AND estoque >= $1
`

func (t *saleTx) DecrementStock(ctx context.Context, productID int64, quantity int) (int64, error) {
	result, err := monitoring.InstrumentExec(ctx, t.tx, "UPDATE", "produtos", decrementStockQuery, quantity, productID)
	if err != nil {
		return 0, errors.Wrapf(err, "decrement stock of product %d", productID)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return affected, nil
}

func (t *saleTx) Commit() error {
	return errors.Wrap(t.tx.Commit(), "commit sale")
}

func (t *saleTx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return errors.Wrap(err, "rollback sale")
}

// Catalog reads table columns outside any sale, for background refreshes.
type Catalog struct {
	db *sql.DB
}

var _ ports.CatalogReader = (*Catalog)(nil)

func NewCatalog(conn *Connection) *Catalog {
	return &Catalog{db: conn.GetDB()}
}

func (c *Catalog) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := monitoring.InstrumentQuery(ctx, c.db, "SELECT", "information_schema.columns", columnsQuery, table)
	if err != nil {
		return nil, errors.Wrapf(err, "list columns of %s", table)
	}
	return scanColumns(rows)
}

func scanColumns(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan column name")
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate columns")
	}
	return columns, nil
}
