// Package listeners reacts to order events after they commit.
package listeners

import (
	"context"
	"html/template"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`<h2>Thanks for your order, {{.User.Name}}</h2>
<p>Order <strong>{{.Order.ID}}</strong> is paid.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}} x {{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Total: {{.Order.Total.StringFixed 2}} {{.Currency}}</p>
`))

// ReceiptMailer emails the buyer when an order is confirmed. Sending runs
// on a small pool so confirmation requests never wait on SMTP.
type ReceiptMailer struct {
	users  *repositories.UserRepository
	orders *repositories.OrderRepository
	sender mail.Sender
	pool   *workerpool.Pool
}

func NewReceiptMailer(users *repositories.UserRepository, orders *repositories.OrderRepository, sender mail.Sender) *ReceiptMailer {
	return &ReceiptMailer{users: users, orders: orders, sender: sender, pool: workerpool.New(2)}
}

// Subscribe registers the mailer for confirmed orders.
func (m *ReceiptMailer) Subscribe(bus *event.Bus) {
	bus.Listen(event.OrderConfirmed, func(ev event.Event) {
		orderID := ev.OrderID
		if err := m.pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := m.Send(ctx, orderID); err != nil {
				logger.Error("receipt: send failed", "order_id", orderID, "error", err)
			}
		}); err != nil {
			logger.Warn("receipt: dropped", "order_id", orderID, "error", err)
		}
	})
}

// Send emails the receipt for one order.
func (m *ReceiptMailer) Send(ctx context.Context, orderID string) error {
	order, err := m.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	user, err := m.users.FindByID(ctx, order.UserID)
	if err != nil {
		return err
	}
	msg := mail.To(user.Email).
		Subject("Your storefront order " + order.ID[:8]).
		Template(receiptTmpl, struct {
			User     *models.User
			Order    *models.Order
			Currency string
		}{user, order, order.Currency})
	return m.sender.Send(ctx, msg)
}

// Wait blocks until queued receipts are sent.
func (m *ReceiptMailer) Wait() { m.pool.Wait() }

// Close drains the queue.
func (m *ReceiptMailer) Close() { m.pool.Shutdown() }
