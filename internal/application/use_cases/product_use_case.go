package use_cases

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuzvak/pdv-service/internal/application/ports"
	"github.com/yuzvak/pdv-service/internal/domain/catalog"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

const minSearchLength = 2

type CatalogLimits struct {
	DefaultLimit int
	MaxLimit     int
}

type ProductUseCase struct {
	repo   ports.ProductRepository
	cache  ports.ProductCache
	log    *logger.Logger
	limits CatalogLimits
}

func NewProductUseCase(repo ports.ProductRepository, cache ports.ProductCache, log *logger.Logger, limits CatalogLimits) *ProductUseCase {
	return &ProductUseCase{
		repo:   repo,
		cache:  cache,
		log:    log,
		limits: limits,
	}
}

// Search resolves a numeric query as an exact id among active products, a text
// query as a name substring among active products and an empty query as the
// full inventory listing capped at limit.
func (uc *ProductUseCase) Search(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	term := strings.TrimSpace(query)

	if id, err := strconv.ParseInt(term, 10, 64); err == nil {
		return uc.cached(ctx, "id:"+strconv.FormatInt(id, 10), func() ([]catalog.Product, error) {
			return uc.repo.FindActiveByID(ctx, id)
		})
	}

	if term != "" {
		if utf8.RuneCountInString(term) < minSearchLength {
			return []catalog.Product{}, nil
		}
		return uc.cached(ctx, "name:"+strings.ToLower(term), func() ([]catalog.Product, error) {
			return uc.repo.SearchActiveByName(ctx, term)
		})
	}

	limit = uc.clampLimit(limit)
	return uc.cached(ctx, "list:"+strconv.Itoa(limit), func() ([]catalog.Product, error) {
		return uc.repo.List(ctx, limit)
	})
}

func (uc *ProductUseCase) Create(ctx context.Context, p catalog.NewProduct) (*catalog.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	product, err := uc.repo.Create(ctx, p)
	if err != nil {
		uc.log.Error("Failed to create product", "error", err, "name", p.Name)
		return nil, err
	}

	uc.invalidate(ctx)
	uc.log.Info("Product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

func (uc *ProductUseCase) Update(ctx context.Context, id int64, patch catalog.ProductPatch) (*catalog.Product, error) {
	if err := catalog.ValidateID(id); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	product, err := uc.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	uc.log.Info("Product updated", "product_id", id)
	return product, nil
}

func (uc *ProductUseCase) AddStock(ctx context.Context, id int64, quantity int) (*catalog.Product, error) {
	if err := catalog.ValidateID(id); err != nil {
		return nil, err
	}
	if err := catalog.ValidateRestock(quantity); err != nil {
		return nil, err
	}

	product, err := uc.repo.AddStock(ctx, id, quantity)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx)
	uc.log.Info("Stock added", "product_id", id, "quantity", quantity, "stock", product.Stock)
	return product, nil
}

func (uc *ProductUseCase) clampLimit(limit int) int {
	if limit <= 0 {
		return uc.limits.DefaultLimit
	}
	if limit > uc.limits.MaxLimit {
		return uc.limits.MaxLimit
	}
	return limit
}

// cached is a read-through lookup. Cache errors degrade to a direct read and
// skip the fill.
func (uc *ProductUseCase) cached(ctx context.Context, key string, load func() ([]catalog.Product, error)) ([]catalog.Product, error) {
	var entry string
	if uc.cache != nil {
		products, e, hit, err := uc.cache.GetProducts(ctx, key)
		if err != nil {
			uc.log.Warn("Product cache read failed", "error", err, "key", key)
		} else if hit {
			return products, nil
		}
		entry = e
	}

	products, err := load()
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []catalog.Product{}
	}

	if entry != "" {
		if err := uc.cache.SetProducts(ctx, entry, products); err != nil {
			uc.log.Warn("Product cache write failed", "error", err, "key", key)
		}
	}
	return products, nil
}

func (uc *ProductUseCase) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.InvalidateProducts(ctx); err != nil {
		uc.log.Warn("Failed to invalidate product cache", "error", err)
	}
}
