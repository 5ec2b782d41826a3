package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cromashop/croma/internal/email"
	"github.com/cromashop/croma/internal/models"
)

// OrderEmailSender sends transactional order emails. Services treat email
// delivery as best-effort: failures are logged, never bubbled into the
// checkout or reconciliation result.
type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendOrderStatusUpdate(ctx context.Context, order *models.Order, status models.OrderStatus) error
}

// StoreOrderEmailSender renders the built-in order templates and delivers
// them through the configured email provider.
type StoreOrderEmailSender struct {
	provider  email.Provider
	storeName string
	storeURL  string
}

func NewStoreOrderEmailSender(provider email.Provider, storeName, storeURL string) *StoreOrderEmailSender {
	return &StoreOrderEmailSender{
		provider:  provider,
		storeName: storeName,
		storeURL:  storeURL,
	}
}

func (s *StoreOrderEmailSender) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return email.SendOrderConfirmation(ctx, s.provider, s.orderInfo(order))
}

func (s *StoreOrderEmailSender) SendOrderStatusUpdate(ctx context.Context, order *models.Order, status models.OrderStatus) error {
	info := s.orderInfo(order)
	switch status {
	case models.StatusShipped:
		return email.SendOrderShipped(ctx, s.provider, info)
	case models.StatusDelivered:
		return email.SendOrderDelivered(ctx, s.provider, info)
	case models.StatusCancelled:
		return email.SendOrderCancelled(ctx, s.provider, info)
	default:
		// No customer-facing email for the remaining transitions.
		return nil
	}
}

func (s *StoreOrderEmailSender) orderInfo(order *models.Order) *email.OrderInfo {
	lines := make([]email.OrderLine, 0, len(order.Items))
	var subtotal int64
	for _, item := range order.Items {
		lineTotal := item.PriceCents * int64(item.Quantity)
		subtotal += lineTotal
		lines = append(lines, email.OrderLine{
			Name:      item.ProductName,
			Size:      item.Size,
			Quantity:  item.Quantity,
			LineTotal: FormatEuros(lineTotal),
		})
	}

	info := &email.OrderInfo{
		OrderNumber:     OrderNumber(order),
		CustomerName:    order.ShippingAddress.Name,
		CustomerEmail:   order.ShippingAddress.Email,
		StoreName:       s.storeName,
		StoreURL:        s.storeURL,
		OrderDate:       order.CreatedAt.Format("January 2, 2006"),
		Items:           lines,
		Subtotal:        FormatEuros(subtotal),
		Total:           FormatEuros(order.TotalCents),
		ShippingAddress: FormatShippingAddress(order.ShippingAddress),
	}
	if order.CouponCode != "" {
		info.CouponCode = order.CouponCode
		info.Discount = FormatEuros(order.DiscountCents)
	}
	return info
}

// OrderNumber derives the short customer-facing reference from the order id.
func OrderNumber(order *models.Order) string {
	compact := strings.ReplaceAll(order.ID.String(), "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "#" + strings.ToUpper(compact)
}

// FormatShippingAddress flattens an address into the single-string form used
// in emails.
func FormatShippingAddress(addr models.ShippingAddress) string {
	return fmt.Sprintf("%s, %s, %s %s, %s", addr.Name, addr.Address, addr.PostalCode, addr.City, addr.Country)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *models.Order) error {
	return nil
}

func (noopOrderEmailSender) SendOrderStatusUpdate(context.Context, *models.Order, models.OrderStatus) error {
	return nil
}
