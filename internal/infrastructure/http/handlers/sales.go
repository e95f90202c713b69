package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/yuzvak/pdv-service/internal/application/commands"
	"github.com/yuzvak/pdv-service/internal/domain/sale"
	"github.com/yuzvak/pdv-service/internal/infrastructure/http/response"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

const maxBodyBytes = 1 << 20

type SaleCommandHandler interface {
	Handle(ctx context.Context, cmd commands.FinalizeSaleCommand) (*sale.Order, error)
}

type SaleHandler struct {
	commands SaleCommandHandler
	log      *logger.Logger
}

func NewSaleHandler(commands SaleCommandHandler, log *logger.Logger) *SaleHandler {
	return &SaleHandler{
		commands: commands,
		log:      log,
	}
}

// HandleFinalizeSale serves POST /api/sales.
func (h *SaleHandler) HandleFinalizeSale(w http.ResponseWriter, r *http.Request) {
	var cmd commands.FinalizeSaleCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		h.log.Warn("Invalid sale request body", "error", err)
		response.WriteValidationError(w, "", "invalid JSON body")
		return
	}

	order, err := h.commands.Handle(r.Context(), cmd)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, order)
}
