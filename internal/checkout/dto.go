package checkout

// LineItem is a product/quantity pair priced from the catalog or a cart.
type LineItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=20"`
}

// SessionRequest describes a hosted checkout session.
type SessionRequest struct {
	CartID        string
	Items         []LineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is what the browser needs to redirect to the hosted payment page.
type Session struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type SessionLineItem struct {
	Description string `json:"description"`
	AmountTotal int64  `json:"amountTotal"`
	Quantity    int64  `json:"quantity"`
	UnitAmount  int64  `json:"unitAmount"`
}

// SessionDetails is the order-success page view of a session.
type SessionDetails struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"paymentStatus"`
	Status        string            `json:"status"`
	AmountTotal   int64             `json:"amountTotal"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	Metadata      map[string]string `json:"metadata"`
	LineItems     []SessionLineItem `json:"lineItems"`
}

type ProductSales struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitsSold int64  `json:"unitsSold"`
	Revenue   int64  `json:"revenue"`
}

type SalesStats struct {
	Products      []ProductSales `json:"products"`
	TotalUnits    int64          `json:"totalUnits"`
	TotalRevenue  int64          `json:"totalRevenue"`
	SessionsCount int            `json:"sessionsCount"`
}
