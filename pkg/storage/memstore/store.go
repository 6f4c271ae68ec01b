// Package memstore keeps products and orders in process memory.
//
// A unit of work holds the store's write lock for its whole duration, which
// serializes transactions the way row locks serialize conflicting ones in a
// database. Failed units of work are rolled back from an undo journal.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	inventorymodel "orderservice/pkg/inventory/domain/model"
	ordermodel "orderservice/pkg/order/domain/model"
	"orderservice/pkg/storage"
)

type Store struct {
	mu       sync.RWMutex
	products map[uuid.UUID]inventorymodel.Product
	orders   map[uuid.UUID]ordermodel.Order
	items    map[uuid.UUID][]ordermodel.Item
}

func New() *Store {
	return &Store{
		products: make(map[uuid.UUID]inventorymodel.Product),
		orders:   make(map[uuid.UUID]ordermodel.Order),
		items:    make(map[uuid.UUID][]ordermodel.Item),
	}
}

var _ storage.UnitOfWork = (*Store)(nil)

func (s *Store) ProductRepository() inventorymodel.ProductRepository {
	return &productRepository{session{store: s}}
}

func (s *Store) OrderRepository() ordermodel.OrderRepository {
	return &orderRepository{session{store: s}}
}

func (s *Store) Execute(ctx context.Context, fn func(provider storage.RepositoryProvider) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{session{store: s, journal: &journal{}}}
	defer func() {
		if p := recover(); p != nil {
			tx.journal.rollback()
			panic(p)
		}
		if err != nil {
			tx.journal.rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return ctx.Err()
}

type transaction struct {
	session
}

func (t *transaction) ProductRepository() inventorymodel.ProductRepository {
	return &productRepository{t.session}
}

func (t *transaction) OrderRepository() ordermodel.OrderRepository {
	return &orderRepository{t.session}
}

// session is either bound to a running unit of work (journal != nil), in which case the
// store lock is already held, or standalone, in which case every call takes the lock itself.
type session struct {
	store   *Store
	journal *journal
}

func (s session) read() func() {
	if s.journal != nil {
		return func() {}
	}
	s.store.mu.RLock()
	return s.store.mu.RUnlock
}

func (s session) write() func() {
	if s.journal != nil {
		return func() {}
	}
	s.store.mu.Lock()
	return s.store.mu.Unlock
}

func (s session) record(undo func()) {
	if s.journal != nil {
		s.journal.undo = append(s.journal.undo, undo)
	}
}

type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
