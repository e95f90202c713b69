package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/catalog"
	domainErrors "github.com/yuzvak/pdv-service/internal/domain/errors"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
)

const productColumns = "id, nome, preco, estoque, COALESCE(ativo, TRUE)"

type ProductRepository struct {
	db *sql.DB
}

var _ ports.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(conn *Connection) *ProductRepository {
	return &ProductRepository{db: conn.GetDB()}
}

func (r *ProductRepository) FindActiveByID(ctx context.Context, id int64) ([]catalog.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM produtos
		WHERE id = $1 AND (ativo IS NULL OR ativo)
	`
	return r.query(ctx, query, id)
}

func (r *ProductRepository) SearchActiveByName(ctx context.Context, term string) ([]catalog.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM produtos
		WHERE nome ILIKE $1 AND (ativo IS NULL OR ativo)
		ORDER BY nome
	`
	return r.query(ctx, query, "%"+escapeLike(term)+"%")
}

func (r *ProductRepository) List(ctx context.Context, limit int) ([]catalog.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM produtos
		ORDER BY nome
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

func (r *ProductRepository) Create(ctx context.Context, p catalog.NewProduct) (*catalog.Product, error) {
	query := `
		INSERT INTO produtos (nome, preco, estoque)
		VALUES ($1, $2, $3)
		RETURNING ` + productColumns

	row := monitoring.InstrumentQueryRow(ctx, r.db, "INSERT", "produtos", query, p.Name, p.Price, p.Stock)
	product, err := scanProduct(row)
	if err != nil {
		return nil, errors.Wrap(err, "insert product")
	}
	return product, nil
}

func (r *ProductRepository) Update(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error) {
	var sets []string
	var args []interface{}

	if patch.Price != nil {
		args = append(args, *patch.Price)
		sets = append(sets, "preco = $"+strconv.Itoa(len(args)))
	}
	if patch.Stock != nil {
		args = append(args, *patch.Stock)
		sets = append(sets, "estoque = $"+strconv.Itoa(len(args)))
	}
	if patch.Active != nil {
		args = append(args, *patch.Active)
		sets = append(sets, "ativo = $"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return nil, domainErrors.ErrNoFieldsToUpdate
	}

	args = append(args, id)
	query := "UPDATE produtos SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + productColumns

	row := monitoring.InstrumentQueryRow(ctx, r.db, "UPDATE", "produtos", query, args...)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "update product %d", id)
	}
	return product, nil
}

func (r *ProductRepository) AddStock(ctx context.Context, id int64, quantity int) (*catalog.Product, error) {
	query := `
		UPDATE produtos
		SET estoque = estoque + $1
		WHERE id = $2
		RETURNING ` + productColumns

	row := monitoring.InstrumentQueryRow(ctx, r.db, "UPDATE", "produtos", query, quantity, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "add stock to product %d", id)
	}
	return product, nil
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...interface{}) ([]catalog.Product, error) {
	rows, err := monitoring.InstrumentQuery(ctx, r.db, "SELECT", "produtos", query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate products")
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*catalog.Product, error) {
	var p catalog.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Active); err != nil {
		return nil, err
	}
	return &p, nil
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
