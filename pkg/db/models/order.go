package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wecr8/damp-backend/pkg/enums"
)

// Order is a pre-order recorded from a completed checkout session.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:text;primaryKey"`
	CheckoutSessionID string            `gorm:"column:checkout_session_id;not null;uniqueIndex:orders_checkout_session_id_key"`
	PaymentIntentID   *string           `gorm:"column:payment_intent_id;index:idx_orders_payment_intent"`
	CustomerEmail     string            `gorm:"column:customer_email"`
	CustomerName      string            `gorm:"column:customer_name"`
	Status            enums.OrderStatus `gorm:"column:status;not null;index:idx_orders_status"`
	AmountTotal       int64             `gorm:"column:amount_total;not null;default:0"`
	DepositAmount     int64             `gorm:"column:deposit_amount;not null;default:0"`
	Currency          string            `gorm:"column:currency;not null;default:'usd'"`
	Items             []OrderItem       `gorm:"column:items;type:text;serializer:json"`
	CartID            *string           `gorm:"column:cart_id"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by migrations.
func (Order) TableName() string { return "orders" }

// OrderItem is a line item snapshot stored alongside the order.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Amount    int64  `json:"amount"`
}

// Units sums item quantities.
func (o Order) Units() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
