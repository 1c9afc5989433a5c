package postgres

import (
	"context"
	"errors"

	"inventory/api/internal/models"
	"inventory/api/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

const productColumns = `product_id, product_name, description, category, amount, price, created_at`

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC, product_id DESC
	`)
	if err != nil {
		return nil, oops.Code("PRODUCT_LIST_FAILED").With("operation", "list products").Wrap(err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, oops.Code("PRODUCT_LIST_FAILED").With("operation", "scan product").Wrap(err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PRODUCT_LIST_FAILED").With("operation", "iterate products").Wrap(err)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return models.Product{}, store.ErrProductNotFound
	}
	row := s.db.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE product_id = $1
	`, productID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, store.ErrProductNotFound
		}
		return models.Product{}, oops.Code("PRODUCT_GET_FAILED").
			With("operation", "get product").
			With("product_id", productID).
			Wrap(err)
	}
	return product, nil
}

func (s *Store) CreateProduct(ctx context.Context, input store.ProductInput) (models.Product, error) {
	product := models.Product{
		ProductID:   uuid.NewString(),
		ProductName: input.ProductName,
		Description: input.Description,
		Category:    input.Category,
		Amount:      input.Amount,
		Price:       input.Price,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO products (product_id, product_name, description, category, amount, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, product.ProductID, product.ProductName, product.Description, product.Category, product.Amount, product.Price)
	if err := row.Scan(&product.Created); err != nil {
		return models.Product{}, oops.Code("PRODUCT_CREATE_FAILED").With("operation", "insert product").Wrap(err)
	}
	return product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, productID string, patch store.ProductPatch) (models.Product, error) {
	if patch.Empty() {
		return models.Product{}, store.ErrEmptyUpdate
	}
	if _, err := uuid.Parse(productID); err != nil {
		return models.Product{}, store.ErrProductNotFound
	}
	row := s.db.QueryRow(ctx, `
		UPDATE products SET
			product_name = COALESCE($2, product_name),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			amount = COALESCE($5, amount),
			price = COALESCE($6, price)
		WHERE product_id = $1
		RETURNING `+productColumns,
		productID, patch.ProductName, patch.Description, patch.Category, patch.Amount, patch.Price)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, store.ErrProductNotFound
		}
		return models.Product{}, oops.Code("PRODUCT_UPDATE_FAILED").
			With("operation", "update product").
			With("product_id", productID).
			Wrap(err)
	}
	return product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return store.ErrProductNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		return oops.Code("PRODUCT_DELETE_FAILED").
			With("operation", "delete product").
			With("product_id", productID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (models.Product, error) {
	var product models.Product
	err := row.Scan(&product.ProductID, &product.ProductName, &product.Description, &product.Category, &product.Amount, &product.Price, &product.Created)
	return product, err
}
