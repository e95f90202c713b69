package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzvak/pdv-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
)

var productRowColumns = []string{"id", "nome", "preco", "estoque", "ativo"}

func newMockProductRepository(t *testing.T) (*ProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProductRepository(NewConnectionFromDB(db)), mock
}

func TestProductRepository_FindActiveByID(t *testing.T) {
	repo, mock := newMockProductRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND (ativo IS NULL OR ativo)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(int64(3), "Caneta", "2.50", int64(40), true))

	products, err := repo.FindActiveByID(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Caneta", products[0].Name)
	assert.True(t, products[0].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SearchEscapesWildcards(t *testing.T) {
	repo, mock := newMockProductRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE nome ILIKE $1")).
		WithArgs(`%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	products, err := repo.SearchActiveByName(context.Background(), "50%_off")

	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off`, escapeLike("50%_off"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}

func TestProductRepository_List(t *testing.T) {
	repo, mock := newMockProductRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY nome LIMIT $1")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(int64(1), "Caderno", "10.00", int64(5), true).
			AddRow(int64(2), "Camiseta", "49.90", int64(0), false))

	products, err := repo.List(context.Background(), 100)

	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.False(t, products[1].Active)
}

func TestProductRepository_Create(t *testing.T) {
	repo, mock := newMockProductRepository(t)
	price := decimal.RequireFromString("19.90")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO produtos (nome, preco, estoque)")).
		WithArgs("Agenda", price, 12).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(int64(10), "Agenda", "19.90", int64(12), true))

	product, err := repo.Create(context.Background(), catalog.NewProduct{Name: "Agenda", Price: price, Stock: 12})

	require.NoError(t, err)
	assert.Equal(t, int64(10), product.ID)
	assert.True(t, product.Active)
}

func TestProductRepository_UpdateBuildsSetList(t *testing.T) {
	repo, mock := newMockProductRepository(t)
	price := decimal.RequireFromString("12.00")
	active := false

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE produtos SET preco = $1, ativo = $2 WHERE id = $3 RETURNING")).
		WithArgs(price, false, int64(5)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(int64(5), "Caderno", "12.00", int64(3), false))

	product, err := repo.Update(context.Background(), 5, catalog.ProductPatch{Price: &price, Active: &active})

	require.NoError(t, err)
	assert.False(t, product.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_UpdateNotFound(t *testing.T) {
	repo, mock := newMockProductRepository(t)
	stock := 4

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE produtos SET estoque = $1 WHERE id = $2")).
		WithArgs(4, int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), 404, catalog.ProductPatch{Stock: &stock})

	assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
}

func TestProductRepository_AddStock(t *testing.T) {
	repo, mock := newMockProductRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SET estoque = estoque + $1 WHERE id = $2")).
		WithArgs(10, int64(1)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).AddRow(int64(1), "Caderno", "10.00", int64(15), true))

	product, err := repo.AddStock(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 15, product.Stock)
}

func TestProductRepository_AddStockNotFound(t *testing.T) {
	repo, mock := newMockProductRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SET estoque = estoque + $1")).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := repo.AddStock(context.Background(), 99, 1)

	assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
}
