package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"orderservice/pkg/inventory/domain/model"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

type sqlxProduct struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Stock       int             `db:"stock"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (p sqlxProduct) toModel() *model.Product {
	return &model.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

type productRepository struct {
	db sqlx.ExtContext
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO product (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CreatedAt,
		product.UpdatedAt,
	)
	return errors.Wrap(err, "failed to insert product")
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM product WHERE id = ?`, id)
}

func (r *productRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM product WHERE id = ? FOR UPDATE`, id)
}

func (r *productRepository) find(ctx context.Context, query string, id uuid.UUID) (*model.Product, error) {
	var product sqlxProduct
	err := sqlx.GetContext(ctx, r.db, &product, r.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(model.ErrProductNotFound, "product %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select product %s", id)
	}
	return product.toModel(), nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE product
		SET name = ?, description = ?, price = ?, stock = ?, updated_at = ?
		WHERE id = ?`),
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update product %s", product.ID)
	}
	return expectAffected(result, errors.Wrapf(model.ErrProductNotFound, "product %s", product.ID))
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM product WHERE id = ?`), id)
	if isForeignKeyViolation(err) {
		return errors.Wrapf(model.ErrProductInUse, "product %s", id)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to delete product %s", id)
	}
	return expectAffected(result, errors.Wrapf(model.ErrProductNotFound, "product %s", id))
}

func expectAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
