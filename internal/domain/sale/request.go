package sale

import (
	"fmt"

	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
)

type LineRequest struct {
	ProductID int64
	Quantity  int
}

type Request struct {
	Lines   []LineRequest
	Payment PaymentMethod
}

// NewRequest validates the request shape. Nothing here touches the store.
func NewRequest(lines []LineRequest, payment string) (*Request, error) {
	if len(lines) == 0 {
		return nil, domainErrors.NewValidationError("itens", "item list is required and cannot be empty")
	}

	pm, err := ParsePaymentMethod(payment)
	if err != nil {
		return nil, err
	}

	for i, line := range lines {
		if line.ProductID <= 0 {
			return nil, domainErrors.NewValidationError(fmt.Sprintf("itens[%d].produtoId", i), "product id is required")
		}
		if line.Quantity < 1 {
			return nil, domainErrors.NewValidationError(fmt.Sprintf("itens[%d].quantidade", i), "quantity must be at least 1")
		}
	}

	return &Request{Lines: lines, Payment: pm}, nil
}

// ProductIDs returns the distinct product ids in first-seen order.
func (r *Request) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Lines))
	ids := make([]int64, 0, len(r.Lines))
	for _, line := range r.Lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
