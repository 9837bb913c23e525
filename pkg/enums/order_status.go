package enums

import "fmt"

// OrderStatus tracks a pre-order from deposit through capture.
type OrderStatus string

const (
	OrderStatusDepositPaid       OrderStatus = "deposit_paid"
	OrderStatusPaymentAuthorized OrderStatus = "payment_authorized"
	OrderStatusPaymentCaptured   OrderStatus = "payment_captured"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusPaymentFailed     OrderStatus = "payment_failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDepositPaid,
	OrderStatusPaymentAuthorized,
	OrderStatusPaymentCaptured,
	OrderStatusCancelled,
	OrderStatusPaymentFailed,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusPaymentCaptured, OrderStatusCancelled, OrderStatusPaymentFailed:
		return true
	}
	return false
}

// CanCapture reports whether the authorized funds may still be captured.
func (o OrderStatus) CanCapture() bool {
	return o == OrderStatusDepositPaid || o == OrderStatusPaymentAuthorized
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
