package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftpc/storefront/internal/domain/product"
)

const productColumns = `id, name, description, category, build_type, build_family,
		list_price, selling_price, stock, image, visible`

const (
	listProductsByCategorySQL = `SELECT ` + productColumns + `
		FROM products WHERE category = $1 AND visible ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1)`

	searchProductsSQL = `SELECT ` + productColumns + `
		FROM products
		WHERE visible AND (name ILIKE $1 OR description ILIKE $1 OR category ILIKE $1)
		ORDER BY id`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			build_type = EXCLUDED.build_type,
			build_family = EXCLUDED.build_family,
			list_price = EXCLUDED.list_price,
			selling_price = EXCLUDED.selling_price,
			stock = EXCLUDED.stock,
			image = EXCLUDED.image,
			visible = EXCLUDED.visible`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListByCategory returns visible products in a category, ordered by ID.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByCategorySQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products in %q: %w", category, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier, visible or not.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs, including
// hidden ones; checkout rejects those explicitly.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns visible products whose name, description, or category
// contains the query substring.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or replaces a catalog row, used by the seed tooling.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Category, p.BuildType, p.BuildFamily,
		p.ListPrice, p.SellingPrice, p.Stock, p.Image, p.Visible,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.BuildType, &p.BuildFamily,
		&p.ListPrice, &p.SellingPrice, &p.Stock, &p.Image, &p.Visible,
	)
	return p, err
}
