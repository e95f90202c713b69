package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/pdv-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Search(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	args := m.Called(ctx, query, limit)
	products, _ := args.Get(0).([]catalog.Product)
	return products, args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, p catalog.NewProduct) (*catalog.Product, error) {
	args := m.Called(ctx, p)
	product, _ := args.Get(0).(*catalog.Product)
	return product, args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error) {
	args := m.Called(ctx, id, patch)
	product, _ := args.Get(0).(*catalog.Product)
	return product, args.Error(1)
}

func (m *MockProductService) AddStock(ctx context.Context, id int64, quantity int) (*catalog.Product, error) {
	args := m.Called(ctx, id, quantity)
	product, _ := args.Get(0).(*catalog.Product)
	return product, args.Error(1)
}

func productRouter(svc ProductService) http.Handler {
	h := NewProductHandler(svc, logger.Nop())
	r := chi.NewRouter()
	r.Get("/api/products", h.HandleSearch)
	r.Post("/api/products", h.HandleCreate)
	r.Patch("/api/products/{id}", h.HandleUpdate)
	r.Patch("/api/products/{id}/stock", h.HandleAddStock)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func caderno() *catalog.Product {
	return &catalog.Product{ID: 1, Name: "Caderno", Price: decimal.RequireFromString("10.00"), Stock: 5, Active: true}
}

func TestProductHandler_Search(t *testing.T) {
	svc := new(MockProductService)
	svc.On("Search", mock.Anything, "cad", 50).Return([]catalog.Product{*caderno()}, nil)

	rec := serve(productRouter(svc), http.MethodGet, "/api/products?query=cad&limit=50", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Products []map[string]interface{} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Caderno", body.Products[0]["nome"])
	assert.Equal(t, true, body.Products[0]["ativo"])
	svc.AssertExpectations(t)
}

func TestProductHandler_SearchEmptyResultIsArray(t *testing.T) {
	svc := new(MockProductService)
	svc.On("Search", mock.Anything, "x", 0).Return([]catalog.Product{}, nil)

	rec := serve(productRouter(svc), http.MethodGet, "/api/products?query=x", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[]}`, rec.Body.String())
}

func TestProductHandler_SearchRejectsBadLimit(t *testing.T) {
	svc := new(MockProductService)

	rec := serve(productRouter(svc), http.MethodGet, "/api/products?limit=abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_Create(t *testing.T) {
	svc := new(MockProductService)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(p catalog.NewProduct) bool {
		return p.Name == "Caderno" && p.Price.Equal(decimal.RequireFromString("10")) && p.Stock == 5
	})).Return(caderno(), nil)

	rec := serve(productRouter(svc), http.MethodPost, "/api/products", `{"nome":"Caderno","preco":10.00,"estoque":5}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestProductHandler_CreateRequiresPrice(t *testing.T) {
	svc := new(MockProductService)

	rec := serve(productRouter(svc), http.MethodPost, "/api/products", `{"nome":"Caderno","estoque":5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"preco"`)
}

func TestProductHandler_UpdateNotFound(t *testing.T) {
	svc := new(MockProductService)
	svc.On("Update", mock.Anything, int64(404), mock.Anything).Return(nil, domainErrors.ErrProductNotFound)

	rec := serve(productRouter(svc), http.MethodPatch, "/api/products/404", `{"estoque":3}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductHandler_UpdateRejectsBadID(t *testing.T) {
	svc := new(MockProductService)

	rec := serve(productRouter(svc), http.MethodPatch, "/api/products/zero", `{"estoque":3}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"id"`)
}

func TestProductHandler_AddStock(t *testing.T) {
	svc := new(MockProductService)
	restocked := caderno()
	restocked.Stock = 15
	svc.On("AddStock", mock.Anything, int64(1), 10).Return(restocked, nil)

	rec := serve(productRouter(svc), http.MethodPatch, "/api/products/1/stock", `{"quantidade":10}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"estoque":15`)
}
