package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type MockSaleFinalizer struct {
	mock.Mock
}

func (m *MockSaleFinalizer) FinalizeSale(ctx context.Context, lines []sale.LineRequest, payment string) (*sale.Order, error) {
	args := m.Called(ctx, lines, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Order), args.Error(1)
}

func TestFinalizeSaleHandler_MapsItemsInOrder(t *testing.T) {
	finalizer := new(MockSaleFinalizer)
	want := []sale.LineRequest{{ProductID: 3, Quantity: 1}, {ProductID: 1, Quantity: 2}}
	finalizer.On("FinalizeSale", mock.Anything, want, "PIX").Return(&sale.Order{ID: 9}, nil)
	h := NewFinalizeSaleHandler(finalizer, logger.Nop())

	order, err := h.Handle(context.Background(), FinalizeSaleCommand{
		Items:         []SaleItem{{ProductID: 3, Quantity: 1}, {ProductID: 1, Quantity: 2}},
		PaymentMethod: "PIX",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(9), order.ID)
	finalizer.AssertExpectations(t)
}
