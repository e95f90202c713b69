package sale

import (
	"sort"

	"github.com/shopspring/decimal"

	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
)

// ProductSnapshot is a product row as read inside the sale transaction.
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

type Ledger map[int64]ProductSnapshot

func NewLedger(products []ProductSnapshot) Ledger {
	l := make(Ledger, len(products))
	for _, p := range products {
		l[p.ID] = p
	}
	return l
}

// Missing returns the requested ids absent from the ledger, ascending.
func (l Ledger) Missing(ids []int64) []int64 {
	var missing []int64
	for _, id := range ids {
		if _, ok := l[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// CheckStock compares the running requested quantity per product against the
// stock read in the transaction. Repeated lines for one product accumulate.
func (l Ledger) CheckStock(lines []LineRequest) error {
	requested := make(map[int64]int, len(lines))
	for _, line := range lines {
		p := l[line.ProductID]
		requested[line.ProductID] += line.Quantity
		if requested[line.ProductID] > p.Stock {
			return &domainErrors.InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: requested[line.ProductID],
			}
		}
	}
	return nil
}

type OrderLine struct {
	ProductID int64           `json:"produtoId"`
	Name      string          `json:"nome"`
	Quantity  int             `json:"quantidade"`
	UnitPrice decimal.Decimal `json:"precoUnitario"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID      int64           `json:"pedidoId"`
	Total   decimal.Decimal `json:"total"`
	Payment PaymentMethod   `json:"formaPagamento"`
	Lines   []OrderLine     `json:"itens"`
}

// Price builds the order from captured unit prices, keeping input line order.
// Every line's product must already be in the ledger.
func (l Ledger) Price(req *Request) *Order {
	order := &Order{
		Total:   decimal.Zero,
		Payment: req.Payment,
		Lines:   make([]OrderLine, 0, len(req.Lines)),
	}

	for _, line := range req.Lines {
		p := l[line.ProductID]
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Lines = append(order.Lines, OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			Subtotal:  subtotal,
		})
		order.Total = order.Total.Add(subtotal)
	}
	return order
}
