package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/yuzvak/pdv-service/internal/domain/catalog"
	"github.com/yuzvak/pdv-service/internal/infrastructure/http/response"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type ProductService interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Product, error)
	Create(ctx context.Context, p catalog.NewProduct) (*catalog.Product, error)
	Update(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error)
	AddStock(ctx context.Context, id int64, quantity int) (*catalog.Product, error)
}

type ProductHandler struct {
	products ProductService
	log      *logger.Logger
}

func NewProductHandler(products ProductService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		log:      log,
	}
}

type createProductRequest struct {
	Name  string           `json:"nome"`
	Price *decimal.Decimal `json:"preco"`
	Stock *int             `json:"estoque"`
}

type updateProductRequest struct {
	Price  *decimal.Decimal `json:"preco"`
	Stock  *int             `json:"estoque"`
	Active *bool            `json:"ativo"`
}

type addStockRequest struct {
	Quantity *int `json:"quantidade"`
}

// HandleSearch serves GET /api/products?query=&limit=.
func (h *ProductHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.WriteValidationError(w, "limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	products, err := h.products.Search(r.Context(), query, limit)
	if err != nil {
		h.log.Error("Product search failed", "error", err, "query", query)
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, response.ProductsResponse[catalog.Product]{Products: products})
}

func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Price == nil {
		response.WriteValidationError(w, "preco", "price is required")
		return
	}
	if req.Stock == nil {
		response.WriteValidationError(w, "estoque", "stock is required")
		return
	}

	product, err := h.products.Create(r.Context(), catalog.NewProduct{
		Name:  req.Name,
		Price: *req.Price,
		Stock: *req.Stock,
	})
	if err != nil {
		h.writeError(w, "create", err)
		return
	}

	response.WriteCreated(w, product)
}

func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req updateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	product, err := h.products.Update(r.Context(), id, catalog.ProductPatch{
		Price:  req.Price,
		Stock:  req.Stock,
		Active: req.Active,
	})
	if err != nil {
		h.writeError(w, "update", err)
		return
	}

	response.WriteSuccess(w, product)
}

func (h *ProductHandler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req addStockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		response.WriteValidationError(w, "quantidade", "quantity is required")
		return
	}

	product, err := h.products.AddStock(r.Context(), id, *req.Quantity)
	if err != nil {
		h.writeError(w, "add stock", err)
		return
	}

	response.WriteSuccess(w, product)
}

func (h *ProductHandler) writeError(w http.ResponseWriter, op string, err error) {
	status, _ := response.MapDomainError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Product "+op+" failed", "error", err)
	}
	response.WriteDomainError(w, err)
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		response.WriteValidationError(w, "id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		response.WriteValidationError(w, "", "invalid JSON body")
		return false
	}
	return true
}
