package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	ordermodel "orderservice/pkg/order/domain/model"
	"orderservice/pkg/storage"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ storage.UnitOfWork = (*Store)(nil)

func (s *Store) ProductRepository() inventorymodel.ProductRepository {
	return &productRepository{db: s.db}
}

func (s *Store) OrderRepository() ordermodel.OrderRepository {
	return &orderRepository{db: s.db}
}

// Execute runs fn inside one database transaction. Row locks taken through
// FindForUpdate are held until fn returns and the transaction ends.
func (s *Store) Execute(ctx context.Context, fn func(provider storage.RepositoryProvider) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&transaction{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

type transaction struct {
	tx *sqlx.Tx
}

func (t *transaction) ProductRepository() inventorymodel.ProductRepository {
	return &productRepository{db: t.tx}
}

func (t *transaction) OrderRepository() ordermodel.OrderRepository {
	return &orderRepository{db: t.tx}
}
