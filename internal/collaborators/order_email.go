package collaborators

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gatewaysync/internal/collaborators/email"
	"github.com/angelmondragon/gatewaysync/pkg/db/models"
)

type orderEmailLine struct {
	Name     string
	Quantity int
	Total    string
}

type orderEmailData struct {
	OrderNumber    string
	InvoiceNumber  string
	CustomerName   string
	Lines          []orderEmailLine
	Subtotal       string
	Shipping       string
	Tax            string
	Discount       string
	Total          string
	ReceiptURL     string
	PackingSlipURL string
	OrderURL       string
}

var orderEmailHTML = htmltemplate.Must(htmltemplate.New("order_html").Parse(`<p>Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},</p>
<p>We received your payment for order <strong>{{.OrderNumber}}</strong>{{if .InvoiceNumber}} (invoice {{.InvoiceNumber}}){{end}}.</p>
<table>
{{range .Lines}}<tr><td>{{.Quantity}} &times; {{.Name}}</td><td align="right">{{.Total}}</td></tr>
{{end}}<tr><td>Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
{{if .Discount}}<tr><td>Discount</td><td align="right">-{{.Discount}}</td></tr>
{{end}}<tr><td>Shipping</td><td align="right">{{.Shipping}}</td></tr>
<tr><td>Tax</td><td align="right">{{.Tax}}</td></tr>
<tr><td><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
</table>
{{if .OrderURL}}<p><a href="{{.OrderURL}}">View your order</a></p>{{end}}
{{if .ReceiptURL}}<p><a href="{{.ReceiptURL}}">Payment receipt</a></p>{{end}}`))

var orderEmailText = texttemplate.Must(texttemplate.New("order_text").Parse(`Hi {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

We received your payment for order {{.OrderNumber}}{{if .InvoiceNumber}} (invoice {{.InvoiceNumber}}){{end}}.

{{range .Lines}}{{.Quantity}} x {{.Name}}  {{.Total}}
{{end}}
Subtotal  {{.Subtotal}}
{{if .Discount}}Discount  -{{.Discount}}
{{end}}Shipping  {{.Shipping}}
Tax       {{.Tax}}
Total     {{.Total}}
{{if .OrderURL}}
View your order: {{.OrderURL}}
{{end}}{{if .ReceiptURL}}Payment receipt: {{.ReceiptURL}}
{{end}}`))

// orderPaidEmail renders the payment confirmation for order. It reports
// false when the order has no contact email.
func orderPaidEmail(order *models.Order, invoice *models.Invoice, storefrontURL string, bcc []string) (email.Message, bool, error) {
	if order == nil || order.CustomerEmail == nil || strings.TrimSpace(*order.CustomerEmail) == "" {
		return email.Message{}, false, nil
	}

	currency := strings.ToUpper(order.Currency)
	data := orderEmailData{
		OrderNumber: order.OrderNumber,
		Subtotal:    formatMoney(order.Subtotal, currency),
		Shipping:    formatMoney(order.Shipping, currency),
		Tax:         formatMoney(order.Tax, currency),
		Total:       formatMoney(order.Total, currency),
	}
	if invoice != nil {
		data.InvoiceNumber = invoice.InvoiceNumber
	}
	if order.CustomerName != nil {
		data.CustomerName = *order.CustomerName
	}
	if order.Discount.IsPositive() {
		data.Discount = formatMoney(order.Discount, currency)
	}
	if order.ReceiptURL != nil {
		data.ReceiptURL = *order.ReceiptURL
	}
	if base := strings.TrimRight(strings.TrimSpace(storefrontURL), "/"); base != "" {
		data.OrderURL = fmt.Sprintf("%s/orders/%s", base, order.OrderNumber)
	}
	for _, item := range order.Cart {
		data.Lines = append(data.Lines, orderEmailLine{
			Name:     item.Name,
			Quantity: item.Quantity,
			Total:    formatMoney(item.LineTotal, currency),
		})
	}

	var html, text bytes.Buffer
	if err := orderEmailHTML.Execute(&html, data); err != nil {
		return email.Message{}, false, fmt.Errorf("render html: %w", err)
	}
	if err := orderEmailText.Execute(&text, data); err != nil {
		return email.Message{}, false, fmt.Errorf("render text: %w", err)
	}

	msg := email.Message{
		To:      *order.CustomerEmail,
		ToName:  data.CustomerName,
		BCC:     bcc,
		Subject: fmt.Sprintf("Order %s confirmed", order.OrderNumber),
		HTML:    html.String(),
		Text:    text.String(),
	}
	return msg, true, nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + currency
}
