package response

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

func init() {
	// money goes out as JSON numbers: 49.9, not "49.9"
	decimal.MarshalJSONWithoutQuotes = true
}

type Status string

const (
	StatusSuccess           Status = "success"
	StatusValidationError   Status = "validation_error"
	StatusNotFound          Status = "not_found"
	StatusInsufficientStock Status = "insufficient_stock"
	StatusTransactionError  Status = "transaction_error"
	StatusInternalError     Status = "internal_error"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    Status `json:"code"`
	Field   string `json:"field,omitempty"`
}

type ProductsResponse[T any] struct {
	Products []T `json:"products"`
}

func Error(status Status, message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
		Code:    status,
	}
}

func WriteJSON(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func WriteSuccess[T any](w http.ResponseWriter, data T) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteCreated[T any](w http.ResponseWriter, data T) {
	WriteJSON(w, http.StatusCreated, data)
}

func WriteError(w http.ResponseWriter, statusCode int, status Status, message string) {
	WriteJSON(w, statusCode, Error(status, message))
}

func WriteValidationError(w http.ResponseWriter, field, message string) {
	WriteJSON(w, http.StatusBadRequest, &ErrorResponse{
		Message: message,
		Code:    StatusValidationError,
		Field:   field,
	})
}
