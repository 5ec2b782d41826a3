// Package email provides email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// OrderInfo carries everything the order email templates need. Amount fields
// are pre-formatted strings so templates never do money math.
type OrderInfo struct {
	OrderNumber     string
	CustomerName    string
	CustomerEmail   string
	StoreName       string
	StoreURL        string
	OrderDate       string
	Items           []OrderLine
	Subtotal        string
	CouponCode      string
	Discount        string
	Total           string
	ShippingAddress string
}

// OrderLine is a single line in an order email.
type OrderLine struct {
	Name      string
	Size      string
	Quantity  int
	LineTotal string
}

type emailTemplate struct {
	Subject string
	HTML    string
	Text    string
}

var orderTemplates = map[string]emailTemplate{
	"order_confirmation": {
		Subject: "Order Confirmed - %s - %s",
		HTML:    orderConfirmationHTML,
		Text:    orderConfirmationText,
	},
	"order_shipped": {
		Subject: "Your Order Is On Its Way - %s - %s",
		HTML:    orderShippedHTML,
		Text:    orderShippedText,
	},
	"order_delivered": {
		Subject: "Your Order Has Been Delivered - %s",
		HTML:    orderDeliveredHTML,
		Text:    orderDeliveredText,
	},
	"order_cancelled": {
		Subject: "Your Order Has Been Cancelled - %s",
		HTML:    orderCancelledHTML,
		Text:    orderCancelledText,
	},
}

// Renderer renders the built-in order email templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() (*Renderer, error) {
	tmpl := template.New("email")

	for key, t := range orderTemplates {
		if _, err := tmpl.New(key + "_html").Parse(t.HTML); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", key, err)
		}
		if _, err := tmpl.New(key + "_text").Parse(t.Text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
	}

	return &Renderer{templates: tmpl}, nil
}

// Render renders a named order template with the given data.
func (r *Renderer) Render(ctx context.Context, templateName string, data *OrderInfo) (*Email, error) {
	def, ok := orderTemplates[templateName]
	if !ok {
		return nil, fmt.Errorf("unknown email template: %s", templateName)
	}

	var htmlBuf, textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&htmlBuf, templateName+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := r.templates.ExecuteTemplate(&textBuf, templateName+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	var subject string
	switch templateName {
	case "order_confirmation", "order_shipped":
		subject = fmt.Sprintf(def.Subject, data.OrderNumber, data.StoreName)
	default:
		subject = fmt.Sprintf(def.Subject, data.OrderNumber)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

func sendOrderTemplate(ctx context.Context, p Provider, templateName string, orderInfo *OrderInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	email, err := renderer.Render(ctx, templateName, orderInfo)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, email)
}

// SendOrderConfirmation sends an order confirmation email.
func SendOrderConfirmation(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendOrderTemplate(ctx, p, "order_confirmation", orderInfo)
}

// SendOrderShipped sends an order shipped email.
func SendOrderShipped(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendOrderTemplate(ctx, p, "order_shipped", orderInfo)
}

// SendOrderDelivered sends an order delivered email.
func SendOrderDelivered(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendOrderTemplate(ctx, p, "order_delivered", orderInfo)
}

// SendOrderCancelled sends an order cancelled email.
func SendOrderCancelled(ctx context.Context, p Provider, orderInfo *OrderInfo) error {
	return sendOrderTemplate(ctx, p, "order_cancelled", orderInfo)
}

// Template text content - Order Confirmation
const orderConfirmationText = `Thank you for your order!

Order Number: {{.OrderNumber}}
Order Date: {{.OrderDate}}

Items:
{{range .Items}}
- {{.Name}} ({{.Size}}) x{{.Quantity}} - {{.LineTotal}}
{{end}}

Subtotal: {{.Subtotal}}
{{if .CouponCode}}Discount ({{.CouponCode}}): -{{.Discount}}
{{end}}Total: {{.Total}}

Shipping to:
{{.ShippingAddress}}

We'll send you another email when your order ships.

Thank you for shopping with {{.StoreName}}!
{{.StoreURL}}
`

// Template HTML content - Order Confirmation
const orderConfirmationHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Confirmation</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #111111; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #fafafa; padding: 20px; border: 1px solid #e5e5e5; }
    .order-info { background: white; padding: 15px; border-radius: 6px; margin: 15px 0; }
    .items-table { width: 100%; border-collapse: collapse; margin: 15px 0; }
    .items-table th { text-align: left; padding: 10px; background: #f0f0f0; border-bottom: 2px solid #e5e5e5; }
    .items-table td { padding: 10px; border-bottom: 1px solid #e5e5e5; }
    .total { font-size: 18px; font-weight: bold; text-align: right; padding: 15px 0; }
    .footer { text-align: center; padding: 20px; color: #737373; font-size: 14px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Order Confirmed!</h1>
    <p>Thank you for your order, {{.CustomerName}}</p>
  </div>
  <div class="content">
    <div class="order-info">
      <strong>Order Number:</strong> {{.OrderNumber}}<br>
      <strong>Order Date:</strong> {{.OrderDate}}
    </div>

    <h3>Order Summary</h3>
    <table class="items-table">
      <thead>
        <tr>
          <th>Item</th>
          <th>Size</th>
          <th>Qty</th>
          <th>Price</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{.Size}}</td>
          <td>{{.Quantity}}</td>
          <td>{{.LineTotal}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="total">
      <p>Subtotal: {{.Subtotal}}</p>
      {{if .CouponCode}}<p>Discount ({{.CouponCode}}): -{{.Discount}}</p>{{end}}
      <p>Total: {{.Total}}</p>
    </div>

    <h3>Shipping To</h3>
    <p>{{.ShippingAddress}}</p>

    <p>We'll send you another email when your order ships.</p>
  </div>
  <div class="footer">
    <p>Thank you for shopping with <a href="{{.StoreURL}}">{{.StoreName}}</a></p>
  </div>
</body>
</html>
`

// Template text content - Order Shipped
const orderShippedText = `Great news! Your order is on its way!

Order Number: {{.OrderNumber}}
Shipped Date: {{.OrderDate}}

Shipping Address:
{{.ShippingAddress}}

We'll let you know when your package is delivered!

Thank you for shopping with {{.StoreName}}!
{{.StoreURL}}
`

// Template HTML content - Order Shipped
const orderShippedHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Shipped</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #059669; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #fafafa; padding: 20px; border: 1px solid #e5e5e5; }
    .footer { text-align: center; padding: 20px; color: #737373; font-size: 14px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Your Order Is On Its Way!</h1>
    <p>Great news, {{.CustomerName}}! Your order has shipped.</p>
  </div>
  <div class="content">
    <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
    <p><strong>Shipped Date:</strong> {{.OrderDate}}</p>

    <h3>Shipping Address</h3>
    <p>{{.ShippingAddress}}</p>

    <p>We'll let you know when your package is delivered!</p>
  </div>
  <div class="footer">
    <p>Thank you for shopping with <a href="{{.StoreURL}}">{{.StoreName}}</a></p>
  </div>
</body>
</html>
`

// Template text content - Order Delivered
const orderDeliveredText = `Your order has been delivered!

Order Number: {{.OrderNumber}}
Delivered Date: {{.OrderDate}}

Your package should have arrived at:
{{.ShippingAddress}}

We hope you enjoy your purchase! If anything isn't right, you can request a
return from your account within 30 days.

Thank you for shopping with {{.StoreName}}!
{{.StoreURL}}
`

// Template HTML content - Order Delivered
const orderDeliveredHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Delivered</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #7c3aed; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #fafafa; padding: 20px; border: 1px solid #e5e5e5; }
    .footer { text-align: center; padding: 20px; color: #737373; font-size: 14px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Your Order Has Been Delivered!</h1>
    <p>Your package has arrived, {{.CustomerName}}!</p>
  </div>
  <div class="content">
    <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
    <p><strong>Delivered Date:</strong> {{.OrderDate}}</p>

    <h3>Delivered To</h3>
    <p>{{.ShippingAddress}}</p>

    <p>We hope you enjoy your purchase! If anything isn't right, you can request a return from your account within 30 days.</p>
  </div>
  <div class="footer">
    <p>Thank you for shopping with <a href="{{.StoreURL}}">{{.StoreName}}</a></p>
  </div>
</body>
</html>
`

// Template text content - Order Cancelled
const orderCancelledText = `Your order has been cancelled.

Order Number: {{.OrderNumber}}

If you were charged, the payment will be refunded to your original payment
method within a few business days.

If you didn't request this cancellation, please contact us.

{{.StoreName}}
{{.StoreURL}}
`

// Template HTML content - Order Cancelled
const orderCancelledHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Cancelled</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1a1a1a; max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #b91c1c; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #fafafa; padding: 20px; border: 1px solid #e5e5e5; }
    .footer { text-align: center; padding: 20px; color: #737373; font-size: 14px; }
  </style>
</head>
<body>
  <div class="header">
    <h1>Order Cancelled</h1>
  </div>
  <div class="content">
    <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
    <p>If you were charged, the payment will be refunded to your original payment method within a few business days.</p>
    <p>If you didn't request this cancellation, please contact us.</p>
  </div>
  <div class="footer">
    <p><a href="{{.StoreURL}}">{{.StoreName}}</a></p>
  </div>
</body>
</html>
`
