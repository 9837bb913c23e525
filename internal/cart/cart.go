package cart

import (
	"time"

	"github.com/wecr8/damp-backend/internal/catalog"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
)

var (
	ErrInvalidQuantity = pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	ErrItemNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	ErrCartNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	ErrCartEmpty       = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
)

// Item is one cart line. Quantity is always >= 1.
type Item struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unitPrice"`
	UnitDeposit int64  `json:"unitDeposit"`
	Quantity    int    `json:"quantity"`
}

func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Cart is an owned, ordered collection of items. Totals are derived on read.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New(id string, now time.Time) *Cart {
	return &Cart{ID: id, Items: []Item{}, CreatedAt: now, UpdatedAt: now}
}

// AddItem increments an existing line or appends a new one. qty < 1 counts as 1.
func (c *Cart) AddItem(p catalog.Product, qty int) {
	if qty < 1 {
		qty = 1
	}
	if idx := c.indexOf(p.ID); idx >= 0 {
		c.Items[idx].Quantity += qty
		return
	}
	c.Items = append(c.Items, Item{
		ProductID:   p.ID,
		Name:        p.Name,
		UnitPrice:   p.Price,
		UnitDeposit: p.Deposit,
		Quantity:    qty,
	})
}

// RemoveItem drops the matching line; absent products are ignored.
func (c *Cart) RemoveItem(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

// SetQuantity replaces a line's quantity. The cart is untouched on error.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	c.Items[idx].Quantity = qty
	return nil
}

func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}

func (c *Cart) DepositTotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitDeposit * int64(item.Quantity)
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
