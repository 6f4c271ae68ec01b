package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	commondomain "orderservice/pkg/common/domain"
	"orderservice/pkg/inventory/domain/model"
	"orderservice/pkg/inventory/domain/service"
	"orderservice/pkg/storage"
)

var ErrInvalidProductName = errors.New("product name must not be empty")

type CatalogService interface {
	CreateProduct(ctx context.Context, name, description string, price decimal.Decimal, initialStock int) (*model.Product, error)
	ChangePrice(ctx context.Context, productID uuid.UUID, newPrice decimal.Decimal) (*model.Product, error)
	ReceiveStock(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	FindProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error)
}

func NewCatalogService(uow storage.UnitOfWork, dispatcher commondomain.EventDispatcher, logger logrus.FieldLogger) CatalogService {
	return &catalogService{uow: uow, dispatcher: dispatcher, logger: logger}
}

type catalogService struct {
	uow        storage.UnitOfWork
	dispatcher commondomain.EventDispatcher
	logger     logrus.FieldLogger
}

func (s *catalogService) CreateProduct(ctx context.Context, name, description string, price decimal.Decimal, initialStock int) (*model.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidProductName
	}
	if err := model.ValidatePrice(price); err != nil {
		return nil, err
	}
	if initialStock < 0 {
		return nil, model.ErrInvalidStockQuantity
	}

	var product *model.Product
	err := s.execute(ctx, func(repo model.ProductRepository, events commondomain.EventDispatcher) error {
		productID, err := repo.NextID()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		product = &model.Product{
			ID:          productID,
			Name:        name,
			Description: description,
			Price:       price,
			Stock:       initialStock,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, product); err != nil {
			return err
		}
		return events.Dispatch(model.ProductCreated{ProductID: productID, Name: name})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ChangePrice affects future orders only: line items keep the price captured at creation.
func (s *catalogService) ChangePrice(ctx context.Context, productID uuid.UUID, newPrice decimal.Decimal) (*model.Product, error) {
	if err := model.ValidatePrice(newPrice); err != nil {
		return nil, err
	}

	var product *model.Product
	err := s.execute(ctx, func(repo model.ProductRepository, events commondomain.EventDispatcher) error {
		var err error
		product, err = repo.FindForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		oldPrice := product.Price
		product.Price = newPrice
		product.UpdatedAt = time.Now().UTC()
		if err := repo.Update(ctx, product); err != nil {
			return err
		}
		return events.Dispatch(model.ProductPriceChanged{ProductID: productID, OldPrice: oldPrice, NewPrice: newPrice})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) ReceiveStock(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error) {
	var product *model.Product
	err := s.execute(ctx, func(repo model.ProductRepository, events commondomain.EventDispatcher) error {
		var err error
		product, err = service.NewLedger(repo, events).Release(ctx, productID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return s.execute(ctx, func(repo model.ProductRepository, events commondomain.EventDispatcher) error {
		if err := repo.Delete(ctx, productID); err != nil {
			return err
		}
		return events.Dispatch(model.ProductDeleted{ProductID: productID})
	})
}

func (s *catalogService) FindProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	return s.uow.ProductRepository().Find(ctx, productID)
}

func (s *catalogService) execute(ctx context.Context, action func(repo model.ProductRepository, events commondomain.EventDispatcher) error) error {
	events := &commondomain.EventBuffer{}
	err := s.uow.Execute(ctx, func(provider storage.RepositoryProvider) error {
		return action(provider.ProductRepository(), events)
	})
	if err != nil {
		return err
	}

	for _, event := range events.Events() {
		if err := s.dispatcher.Dispatch(event); err != nil {
			s.logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
	return nil
}
