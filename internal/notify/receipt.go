// Package notify delivers the side effects of a settled order: the
// purchase receipt email and the order-paid event.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"text/template"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"storefront/internal/domain"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`Hi {{.User.Name}},

Thank you for your purchase. Order {{.ID}} is paid.

{{range .Items}}{{.Qty}} x {{.Name}} @ {{.Price}}
{{end}}
Items:    {{.ItemsPrice}}
Tax:      {{.TaxPrice}}
Shipping: {{.ShippingPrice}}
Total:    {{.TotalPrice}}

Shipping to {{.ShippingAddress.FullName}}, {{.ShippingAddress.StreetAddress}}, {{.ShippingAddress.City}} {{.ShippingAddress.PostalCode}}, {{.ShippingAddress.Country}}
`))

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// ReceiptSender emails purchase receipts through SendGrid.
type ReceiptSender struct {
	client   sendClient
	from     string
	fromName string
	logger   *log.Logger
}

func NewReceiptSender(apiKey, from, fromName string, logger *log.Logger) *ReceiptSender {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ReceiptSender{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName, logger: logger}
}

func (s *ReceiptSender) SendPurchaseReceipt(ctx context.Context, order *domain.Order) error {
	if order.User == nil || order.User.Email == "" {
		return errors.New("receipt: order has no owner email")
	}
	if s.from == "" {
		return errors.New("receipt: from address is empty")
	}

	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, order); err != nil {
		return fmt.Errorf("receipt: render: %w", err)
	}
	subject := fmt.Sprintf("Order confirmation %s", order.ID)
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail(order.User.Name, order.User.Email),
		body.String(),
		"<pre>"+html.EscapeString(body.String())+"</pre>",
	)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("receipt: sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("receipt: sendgrid status=%d body=%s", resp.StatusCode, resp.Body)
	}
	s.logger.Printf("notify: receipt sent order_id=%s to=%s status=%d", order.ID, order.User.Email, resp.StatusCode)
	return nil
}
