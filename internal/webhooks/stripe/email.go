package stripewebhook

import (
	"fmt"
	"html"
	"strings"

	"github.com/wecr8/damp-backend/pkg/db/models"
	"github.com/wecr8/damp-backend/pkg/mailer"
	"github.com/wecr8/damp-backend/pkg/money"
)

func confirmationEmail(order *models.Order, units int64) mailer.Message {
	total := money.Format(order.AmountTotal, order.Currency)
	deposit := money.Format(order.DepositAmount, order.Currency)
	balance := money.Format(order.AmountTotal-order.DepositAmount, order.Currency)

	var text strings.Builder
	fmt.Fprintf(&text, "Thank you for pre-ordering DAMP smart drinkware!\n\n")
	fmt.Fprintf(&text, "Order: %s\nQuantity: %d\nOrder total: %s\nDeposit: %s\nRemaining balance: %s\n\n", order.ID, units, total, deposit, balance)
	fmt.Fprintf(&text, "Your card has been authorized. We will contact you when your order is ready to ship.\n")

	name := order.CustomerName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(`<h1>Pre-order confirmed</h1>
<p>Hi %s, thank you for pre-ordering DAMP smart drinkware!</p>
<ul>
<li>Order: %s</li>
<li>Quantity: %d</li>
<li>Order total: %s</li>
<li>Deposit: %s</li>
<li>Remaining balance: %s</li>
</ul>
<p>Your card has been authorized. We will contact you when your order is ready to ship.</p>`,
		html.EscapeString(name), order.ID, units, total, deposit, balance)

	return mailer.Message{
		To:         order.CustomerEmail,
		ToName:     order.CustomerName,
		Subject:    "Your DAMP pre-order is confirmed",
		PlainText:  text.String(),
		HTML:       body,
		Categories: []string{"pre-order-confirmation"},
	}
}
