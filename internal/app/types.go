package app

import (
	"errors"
	"fmt"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("app: validation failed")

// ValidationError names the offending input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s %s %s", ErrValidation, e.Entity, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type CreateProductRequest struct {
	Name         string
	SellingPrice decimal.Decimal
	// BasePrice defaults to SellingPrice when nil.
	BasePrice   *decimal.Decimal
	ProductCode string
	Category    string
}

type UpdateProductRequest struct {
	ID           int64
	Name         string
	SellingPrice decimal.Decimal
	BasePrice    *decimal.Decimal
	ProductCode  string
	Category     string
}

// OrderLine is a product sold at its current prices.
type OrderLine struct {
	Product  storage.Product
	Quantity int
}

// OrderLineRef names a product by id; prices are looked up at creation time.
type OrderLineRef struct {
	ProductID int64
	Quantity  int
}

type OrderDetail struct {
	Order storage.SalesOrder       `json:"order"`
	Items []storage.SalesOrderItem `json:"items"`
	// ItemsProfit is the sum of per-line profit over the stored items.
	ItemsProfit decimal.Decimal `json:"items_profit"`
}
