package use_cases

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/domain/schema"
)

type memProduct struct {
	name  string
	price decimal.Decimal
	stock int
}

type memOrder struct {
	id      int64
	total   decimal.Decimal
	columns map[string]interface{}
}

type memLine struct {
	orderID   int64
	productID int64
	quantity  int
	unitPrice decimal.Decimal
	payment   string
}

// memStore is an in-memory SaleStore. Stock decrements are applied under the
// store lock with the same condition the SQL guard uses and undone on rollback;
// order rows become visible only on commit.
type memStore struct {
	mu       sync.Mutex
	products map[int64]*memProduct
	orders   []memOrder
	lines    []memLine
	nextID   int64
	columns  map[string][]string

	beginErr       error
	insertOrderErr error
	afterFetch     func(ctx context.Context)
	onDecrement    func(ctx context.Context, productID int64) error
	rollbackErr    error

	begins     int
	commits    int
	rollbacks  int
	lockReads  int
	savepoints int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]*memProduct),
		nextID:   1,
		columns: map[string][]string{
			schema.OrderTable:     {"id", "data_hora", "total", "forma_pagamento"},
			schema.OrderLineTable: {"id", "pedido_id", "produto_id", "quantidade", "preco_unitario"},
		},
	}
}

func (s *memStore) addProduct(id int64, name, price string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &memProduct{name: name, price: decimal.RequireFromString(price), stock: stock}
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) lineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *memStore) setColumns(table string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns[table] = columns
}

// checkLayout fails like Postgres does when a layout names a column the
// table no longer has. Callers hold s.mu.
func (s *memStore) checkLayout(layout schema.Layout) error {
	for _, col := range layout.Columns {
		found := false
		for _, c := range s.columns[layout.Table] {
			if c == col {
				found = true
				break
			}
		}
		if !found {
			return &pq.Error{Code: "42703", Message: `column "` + col + `" of relation "` + layout.Table + `" does not exist`}
		}
	}
	return nil
}

func (s *memStore) BeginSale(ctx context.Context) (ports.SaleTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{store: s}, nil
}

type decrement struct {
	productID int64
	quantity  int
}

type memTx struct {
	store      *memStore
	done       bool
	orders     []memOrder
	lines      []memLine
	decrements []decrement
}

func (tx *memTx) TableColumns(_ context.Context, table string) ([]string, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return append([]string(nil), tx.store.columns[table]...), nil
}

func (tx *memTx) FetchProducts(ctx context.Context, ids []int64, lock bool) ([]sale.ProductSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx.store.mu.Lock()
	if lock {
		tx.store.lockReads++
	}
	var out []sale.ProductSnapshot
	for _, id := range ids {
		if p, ok := tx.store.products[id]; ok {
			out = append(out, sale.ProductSnapshot{ID: id, Name: p.name, Price: p.price, Stock: p.stock})
		}
	}
	hook := tx.store.afterFetch
	tx.store.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook(ctx)
	}
	return out, nil
}

func (tx *memTx) InsertOrder(ctx context.Context, layout schema.Layout, order *sale.Order) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.store.insertOrderErr != nil {
		return 0, tx.store.insertOrderErr
	}
	if err := tx.store.checkLayout(layout); err != nil {
		return 0, err
	}

	cols := make(map[string]interface{})
	if c, ok := layout.Column(schema.RoleTotal); ok {
		cols[c] = order.Total
	}
	if c, ok := layout.Column(schema.RolePayment); ok {
		cols[c] = order.Payment.Code()
	}
	id := tx.store.nextID
	tx.store.nextID++
	tx.orders = append(tx.orders, memOrder{id: id, total: order.Total, columns: cols})
	return id, nil
}

func (tx *memTx) InsertOrderLine(ctx context.Context, layout schema.Layout, orderID int64, line sale.OrderLine, payment sale.PaymentMethod) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.store.mu.Lock()
	err := tx.store.checkLayout(layout)
	tx.store.mu.Unlock()
	if err != nil {
		return err
	}

	l := memLine{orderID: orderID, productID: line.ProductID, quantity: line.Quantity, unitPrice: line.UnitPrice}
	if _, ok := layout.Column(schema.RolePayment); ok {
		l.payment = payment.Code()
	}
	tx.lines = append(tx.lines, l)
	return nil
}

func (tx *memTx) Guarded(_ context.Context, _ string, fn func() error) error {
	tx.store.mu.Lock()
	tx.store.savepoints++
	tx.store.mu.Unlock()

	orders, lines, decrements := len(tx.orders), len(tx.lines), len(tx.decrements)
	if err := fn(); err != nil {
		tx.store.mu.Lock()
		for _, d := range tx.decrements[decrements:] {
			tx.store.products[d.productID].stock += d.quantity
		}
		tx.store.mu.Unlock()
		tx.orders, tx.lines, tx.decrements = tx.orders[:orders], tx.lines[:lines], tx.decrements[:decrements]
		return err
	}
	return nil
}

func (tx *memTx) DecrementStock(ctx context.Context, productID int64, quantity int) (int64, error) {
	if hook := tx.store.onDecrement; hook != nil {
		if err := hook(ctx, productID); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	p, ok := tx.store.products[productID]
	if !ok || p.stock < quantity {
		return 0, nil
	}
	p.stock -= quantity
	tx.decrements = append(tx.decrements, decrement{productID, quantity})
	return 1, nil
}

func (tx *memTx) Commit() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true
	tx.store.commits++
	tx.store.orders = append(tx.store.orders, tx.orders...)
	tx.store.lines = append(tx.store.lines, tx.lines...)
	return nil
}

func (tx *memTx) Rollback() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.rollbacks++
	for _, d := range tx.decrements {
		tx.store.products[d.productID].stock += d.quantity
	}
	return tx.store.rollbackErr
}
