package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductCreated struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductPriceChanged struct {
	ProductID uuid.UUID       `json:"product_id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

func (e ProductPriceChanged) Type() string { return "ProductPriceChanged" }

type ProductStockChanged struct {
	ProductID    uuid.UUID `json:"product_id"`
	ChangeAmount int       `json:"change_amount"` // positive on release, negative on reservation
	NewQuantity  int       `json:"new_quantity"`
}

func (e ProductStockChanged) Type() string { return "ProductStockChanged" }

type ProductDeleted struct {
	ProductID uuid.UUID `json:"product_id"`
}

func (e ProductDeleted) Type() string { return "ProductDeleted" }
