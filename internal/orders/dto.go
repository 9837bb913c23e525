package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/enums"
	"github.com/wecr8/damp-backend/pkg/money"
)

// ListFilters narrows the admin order list.
type ListFilters struct {
	Status *enums.OrderStatus
	Email  string
}

// RecordInput is the order snapshot taken from a completed checkout session.
type RecordInput struct {
	CheckoutSessionID string
	PaymentIntentID   string
	CustomerEmail     string
	CustomerName      string
	AmountTotal       int64
	DepositAmount     int64
	Currency          string
	Items             []models.OrderItem
	CartID            string
	// Authorized records the order as payment_authorized when the session's
	// intent already awaited capture.
	Authorized bool
}

type ItemView struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Amount    int64  `json:"amount"`
}

type OrderView struct {
	ID                uuid.UUID         `json:"id"`
	CheckoutSessionID string            `json:"checkoutSessionId"`
	PaymentIntentID   string            `json:"paymentIntentId,omitempty"`
	CustomerEmail     string            `json:"customerEmail"`
	CustomerName      string            `json:"customerName,omitempty"`
	Status            enums.OrderStatus `json:"status"`
	AmountTotal       int64             `json:"amountTotal"`
	DepositAmount     int64             `json:"depositAmount"`
	Currency          string            `json:"currency"`
	FormattedTotal    string            `json:"formattedTotal"`
	Units             int64             `json:"units"`
	Items             []ItemView        `json:"items"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// NewOrderView maps a stored order to its admin representation.
func NewOrderView(o models.Order) OrderView {
	items := make([]ItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemView(item))
	}
	view := OrderView{
		ID:                o.ID,
		CheckoutSessionID: o.CheckoutSessionID,
		CustomerEmail:     o.CustomerEmail,
		CustomerName:      o.CustomerName,
		Status:            o.Status,
		AmountTotal:       o.AmountTotal,
		DepositAmount:     o.DepositAmount,
		Currency:          o.Currency,
		FormattedTotal:    money.Format(o.AmountTotal, o.Currency),
		Units:             o.Units(),
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.PaymentIntentID != nil {
		view.PaymentIntentID = *o.PaymentIntentID
	}
	return view
}
