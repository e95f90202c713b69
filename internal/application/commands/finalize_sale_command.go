package commands

import (
	"context"

	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type SaleItem struct {
	ProductID int64 `json:"produtoId"`
	Quantity  int   `json:"quantidade"`
}

type FinalizeSaleCommand struct {
	Items         []SaleItem `json:"itens"`
	PaymentMethod string     `json:"formaPagamento"`
}

type SaleFinalizer interface {
	FinalizeSale(ctx context.Context, lines []sale.LineRequest, payment string) (*sale.Order, error)
}

type FinalizeSaleHandler struct {
	finalizer SaleFinalizer
	log       *logger.Logger
}

func NewFinalizeSaleHandler(finalizer SaleFinalizer, log *logger.Logger) *FinalizeSaleHandler {
	return &FinalizeSaleHandler{
		finalizer: finalizer,
		log:       log,
	}
}

func (h *FinalizeSaleHandler) Handle(ctx context.Context, cmd FinalizeSaleCommand) (*sale.Order, error) {
	h.log.Debug("Processing sale request", "items", len(cmd.Items), "payment", cmd.PaymentMethod)

	lines := make([]sale.LineRequest, len(cmd.Items))
	for i, item := range cmd.Items {
		lines[i] = sale.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	return h.finalizer.FinalizeSale(ctx, lines, cmd.PaymentMethod)
}
