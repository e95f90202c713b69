package response

import (
	"errors"
	"net/http"

	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
)

type ErrorMapping struct {
	HTTPStatus int
	Status     Status
	// Message replaces the error text. Empty means the error's own text is
	// safe to show to the caller.
	Message string
}

// checked in order; TransactionError unwraps to its cause as well, so it
// has to be matched before anything the cause could also satisfy.
var errorMappings = []struct {
	target  error
	mapping ErrorMapping
}{
	{domainErrors.ErrTransactionFailed, ErrorMapping{
		HTTPStatus: http.StatusInternalServerError,
		Status:     StatusTransactionError,
		Message:    "The sale could not be completed and nothing was recorded. Please try again.",
	}},
	{domainErrors.ErrValidation, ErrorMapping{
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusValidationError,
	}},
	{domainErrors.ErrNoFieldsToUpdate, ErrorMapping{
		HTTPStatus: http.StatusBadRequest,
		Status:     StatusValidationError,
		Message:    "At least one field must be provided",
	}},
	{domainErrors.ErrProductNotFound, ErrorMapping{
		HTTPStatus: http.StatusNotFound,
		Status:     StatusNotFound,
	}},
	{domainErrors.ErrInsufficientStock, ErrorMapping{
		HTTPStatus: http.StatusConflict,
		Status:     StatusInsufficientStock,
	}},
}

func MapDomainError(err error) (int, *ErrorResponse) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.mapping.Message
		if message == "" {
			message = err.Error()
		}
		resp := Error(m.mapping.Status, message)

		var validation *domainErrors.ValidationError
		if errors.As(err, &validation) {
			resp.Message = validation.Message
			resp.Field = validation.Field
		}
		return m.mapping.HTTPStatus, resp
	}

	return http.StatusInternalServerError, Error(StatusInternalError, "Internal server error")
}

func WriteDomainError(w http.ResponseWriter, err error) {
	statusCode, errorResponse := MapDomainError(err)
	WriteJSON(w, statusCode, errorResponse)
}
