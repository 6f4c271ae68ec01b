package main

import (
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"orderservice/pkg/inventory/application/service"
	"orderservice/pkg/inventory/domain/model"
	"orderservice/pkg/notification"
)

var (
	idFlag = &cli.StringFlag{Name: "id", Usage: "product id", Required: true}

	priceFlag = &cli.StringFlag{Name: "price", Usage: "unit price, two decimal places", Required: true}
)

type productView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

func productCommand() *cli.Command {
	return &cli.Command{
		Name:  "product",
		Usage: "manage the product catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "create a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					priceFlag,
					&cli.IntFlag{Name: "stock", Usage: "initial stock"},
				},
				Action: withCatalog(func(c *cli.Context, catalog service.CatalogService) error {
					price, err := parsePrice(c.String("price"))
					if err != nil {
						return err
					}
					product, err := catalog.CreateProduct(c.Context, c.String("name"), c.String("description"), price, c.Int("stock"))
					if err != nil {
						return err
					}
					return printProduct(c.App.Writer, product)
				}),
			},
			{
				Name:  "price",
				Usage: "change the price of a product",
				Flags: []cli.Flag{idFlag, priceFlag},
				Action: withCatalog(func(c *cli.Context, catalog service.CatalogService) error {
					productID, err := parseProductID(c.String("id"))
					if err != nil {
						return err
					}
					price, err := parsePrice(c.String("price"))
					if err != nil {
						return err
					}
					product, err := catalog.ChangePrice(c.Context, productID, price)
					if err != nil {
						return err
					}
					return printProduct(c.App.Writer, product)
				}),
			},
			{
				Name:  "restock",
				Usage: "receive stock for a product",
				Flags: []cli.Flag{
					idFlag,
					&cli.IntFlag{Name: "quantity", Required: true},
				},
				Action: withCatalog(func(c *cli.Context, catalog service.CatalogService) error {
					productID, err := parseProductID(c.String("id"))
					if err != nil {
						return err
					}
					product, err := catalog.ReceiveStock(c.Context, productID, c.Int("quantity"))
					if err != nil {
						return err
					}
					return printProduct(c.App.Writer, product)
				}),
			},
			{
				Name:  "delete",
				Usage: "delete a product that no order references",
				Flags: []cli.Flag{idFlag},
				Action: withCatalog(func(c *cli.Context, catalog service.CatalogService) error {
					productID, err := parseProductID(c.String("id"))
					if err != nil {
						return err
					}
					return catalog.DeleteProduct(c.Context, productID)
				}),
			},
			{
				Name:  "show",
				Usage: "print a product",
				Flags: []cli.Flag{idFlag},
				Action: withCatalog(func(c *cli.Context, catalog service.CatalogService) error {
					productID, err := parseProductID(c.String("id"))
					if err != nil {
						return err
					}
					product, err := catalog.FindProduct(c.Context, productID)
					if err != nil {
						return err
					}
					return printProduct(c.App.Writer, product)
				}),
			},
		},
	}
}

func withCatalog(action func(c *cli.Context, catalog service.CatalogService) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := parseEnv()
		if err != nil {
			return err
		}
		logger, err := cfg.logger()
		if err != nil {
			return err
		}

		uow, closeStorage, err := openStorage(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer logClose(logger, "storage", closeStorage)

		// Catalog changes are published synchronously to the log sink only.
		events := notification.NewSyncDispatcher(notification.NewLogPublisher(logger), logger)
		return action(c, service.NewCatalogService(uow, events, logger))
	}
}

func parseProductID(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Wrapf(model.ErrProductNotFound, "invalid id %q", value)
	}
	return id, nil
}

func parsePrice(value string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(model.ErrInvalidPrice, "%q", value)
	}
	return price, nil
}

func printProduct(w io.Writer, product *model.Product) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(productView{
		ID:          product.ID.String(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
	})
}
