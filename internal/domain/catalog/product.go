package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
)

const MaxNameLength = 100

type Product struct {
	ID     int64           `json:"id"`
	Name   string          `json:"nome"`
	Price  decimal.Decimal `json:"preco"`
	Stock  int             `json:"estoque"`
	Active bool            `json:"ativo"`
}

type NewProduct struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

func (p *NewProduct) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domainErrors.NewValidationError("nome", "product name is required")
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return domainErrors.NewValidationError("nome", "product name must be at most 100 characters")
	}
	if p.Price.IsNegative() {
		return domainErrors.NewValidationError("preco", "price must be a number >= 0")
	}
	if p.Stock < 0 {
		return domainErrors.NewValidationError("estoque", "stock must be an integer >= 0")
	}
	return nil
}

// ProductPatch carries only the fields the caller sent.
type ProductPatch struct {
	Price  *decimal.Decimal
	Stock  *int
	Active *bool
}

func (p ProductPatch) Empty() bool {
	return p.Price == nil && p.Stock == nil && p.Active == nil
}

func (p ProductPatch) Validate() error {
	if p.Empty() {
		return domainErrors.ErrNoFieldsToUpdate
	}
	if p.Price != nil && p.Price.IsNegative() {
		return domainErrors.NewValidationError("preco", "price must be a number >= 0")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return domainErrors.NewValidationError("estoque", "stock must be an integer >= 0")
	}
	return nil
}

func ValidateID(id int64) error {
	if id < 1 {
		return domainErrors.NewValidationError("id", "invalid product id")
	}
	return nil
}

func ValidateRestock(quantity int) error {
	if quantity < 1 {
		return domainErrors.NewValidationError("quantidade", "quantity must be an integer >= 1")
	}
	return nil
}
