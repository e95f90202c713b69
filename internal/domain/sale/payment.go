package sale

import (
	"encoding/json"
	"strings"

	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
)

type PaymentMethod string

const (
	PaymentPIX  PaymentMethod = "PIX"
	PaymentCard PaymentMethod = "CARD"
	PaymentCash PaymentMethod = "CASH"
)

// legacy codes as stored in the order tables
var paymentCodes = map[PaymentMethod]string{
	PaymentPIX:  "PIX",
	PaymentCard: "CARTAO",
	PaymentCash: "DINHEIRO",
}

var paymentAliases = map[string]PaymentMethod{
	"PIX":      PaymentPIX,
	"CARD":     PaymentCard,
	"CARTAO":   PaymentCard,
	"CARTÃO":   PaymentCard,
	"CASH":     PaymentCash,
	"DINHEIRO": PaymentCash,
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	if pm, ok := paymentAliases[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return pm, nil
	}
	return "", domainErrors.NewValidationError("formaPagamento", "invalid payment method, use PIX, CARTAO or DINHEIRO")
}

// Code is the value written to the payment column and echoed to clients.
func (p PaymentMethod) Code() string {
	if code, ok := paymentCodes[p]; ok {
		return code
	}
	return string(p)
}

func (p PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Code())
}
