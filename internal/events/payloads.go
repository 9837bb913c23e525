package events

// VoteCast is published after a vote is accepted.
type VoteCast struct {
	VoterID   string `json:"voterId"`
	Option    string `json:"option"`
	VoteType  string `json:"voteType"`
	LocalOnly bool   `json:"localOnly,omitempty"`
}

type WaitlistJoined struct {
	EmailHash string `json:"emailHash"`
	Source    string `json:"source"`
	Count     int64  `json:"count"`
}

type CheckoutSessionCreated struct {
	SessionID   string   `json:"sessionId"`
	CartID      string   `json:"cartId,omitempty"`
	ProductIDs  []string `json:"productIds"`
	Quantity    int      `json:"quantity"`
	AmountTotal int64    `json:"amountTotal"`
	Currency    string   `json:"currency"`
}

type OrderDepositPaid struct {
	OrderID           string `json:"orderId"`
	CheckoutSessionID string `json:"checkoutSessionId"`
	AmountTotal       int64  `json:"amountTotal"`
	DepositAmount     int64  `json:"depositAmount"`
	Currency          string `json:"currency"`
	Units             int    `json:"units"`
}
