package cart

import "github.com/wecr8/damp-backend/pkg/money"

type ItemView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

// View is the API representation of a cart with derived totals.
type View struct {
	CartID         string     `json:"cartId"`
	Items          []ItemView `json:"items"`
	ItemCount      int        `json:"itemCount"`
	Total          int64      `json:"total"`
	DepositTotal   int64      `json:"depositTotal"`
	Currency       string     `json:"currency"`
	FormattedTotal string     `json:"formattedTotal"`
}

func NewView(c *Cart, currency string) View {
	items := make([]ItemView, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, ItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	total := c.Total()
	return View{
		CartID:         c.ID,
		Items:          items,
		ItemCount:      c.ItemCount(),
		Total:          total,
		DepositTotal:   c.DepositTotal(),
		Currency:       currency,
		FormattedTotal: money.Format(total, currency),
	}
}
