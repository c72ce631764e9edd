// Package cart assembles persisted cart lines into order payloads and
// submits them. Failed submissions surface to the caller; there is no
// automatic retry.
package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"coffeebeat/internal/domain"
	"coffeebeat/internal/events"
	"coffeebeat/internal/metrics"
	"coffeebeat/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrTableRequired     = errors.New("table number is required for dine-in orders")
	ErrAddressRequired   = errors.New("delivery address is required for delivery orders")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrUnknownOrderType  = errors.New("unknown order type")
	ErrProductIDRequired = errors.New("product id is required")
)

type Builder struct {
	state    domain.LocalState
	orders   domain.OrderAPI
	eventBus domain.EventPublisher
	logger   zerolog.Logger
}

func NewBuilder(state domain.LocalState, orders domain.OrderAPI, eventBus domain.EventPublisher, logger *zerolog.Logger) *Builder {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "cart").Logger()
	}
	return &Builder{state: state, orders: orders, eventBus: eventBus, logger: base}
}

// Items returns the persisted cart lines.
func (b *Builder) Items(ctx context.Context) ([]models.CartItem, error) {
	return b.state.Cart(ctx)
}

// AddItem appends a line or bumps the quantity of an existing one, then
// persists the cart.
func (b *Builder) AddItem(ctx context.Context, item models.CartItem) error {
	if item.ProductID == "" {
		return ErrProductIDRequired
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	items, err := b.state.Cart(ctx)
	if err != nil {
		return err
	}

	merged := false
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}
	return b.state.SaveCart(ctx, items)
}

// RemoveItem drops a line by product ID. Unknown IDs are not an error.
func (b *Builder) RemoveItem(ctx context.Context, productID string) error {
	items, err := b.state.Cart(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	return b.state.SaveCart(ctx, kept)
}

// Clear empties the persisted cart.
func (b *Builder) Clear(ctx context.Context) error {
	return b.state.SaveCart(ctx, nil)
}

// Totals holds the checkout price breakdown.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"deliveryFee"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

// ComputeTotals prices a cart: subtotal plus flat delivery fee (delivery
// only) plus tax on the subtotal. Amounts are rounded to cents.
func ComputeTotals(items []models.CartItem, orderType models.OrderType) Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Price * float64(it.Quantity)
	}

	var fee float64
	if orderType == models.OrderDelivery {
		fee = models.DeliveryFee
	}

	tax := roundCents(subtotal * models.TaxRate)
	subtotal = roundCents(subtotal)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       roundCents(subtotal + fee + tax),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// CheckoutRequest carries the order-type-specific fields.
type CheckoutRequest struct {
	OrderType       models.OrderType
	TableNumber     string
	DeliveryAddress string
	Notes           string
}

func (r CheckoutRequest) validate() error {
	switch r.OrderType {
	case models.OrderDineIn:
		if r.TableNumber == "" {
			return ErrTableRequired
		}
	case models.OrderDelivery:
		if r.DeliveryAddress == "" {
			return ErrAddressRequired
		}
	case models.OrderTakeaway:
	default:
		return ErrUnknownOrderType
	}
	return nil
}

// Checkout builds the order payload from the persisted cart and submits it.
// On success the cart is cleared; on failure it is left intact so the user
// can retry explicitly.
func (b *Builder) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	items, err := b.state.Cart(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	totals := ComputeTotals(items, req.OrderType)
	order := &models.Order{
		Items:           make([]models.OrderItem, 0, len(items)),
		OrderType:       req.OrderType,
		TableNumber:     req.TableNumber,
		DeliveryAddress: req.DeliveryAddress,
		Subtotal:        totals.Subtotal,
		DeliveryFee:     totals.DeliveryFee,
		Tax:             totals.Tax,
		TotalPrice:      totals.Total,
		Notes:           req.Notes,
	}
	for _, it := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price,
			Quantity:    it.Quantity,
		})
	}

	created, err := b.orders.SubmitOrder(ctx, order)
	if err != nil {
		metrics.IncOrder(string(req.OrderType), "error")
		return nil, fmt.Errorf("submit order: %w", err)
	}
	metrics.IncOrder(string(req.OrderType), "ok")

	if err := b.state.SaveCart(ctx, nil); err != nil {
		b.logger.Error().Err(err).Msg("clear cart after checkout")
	}

	if b.eventBus != nil {
		payload := events.OrderPlacedPayload{
			OrderID:    created.ID,
			OrderType:  string(created.OrderType),
			TotalPrice: created.TotalPrice,
			ItemCount:  len(created.Items),
		}
		if err := b.eventBus.PublishJSON(events.EventOrderPlaced, payload); err != nil {
			b.logger.Error().Err(err).Str("order_id", created.ID).Msg("publish order event")
		}
	}

	b.logger.Info().Str("order_id", created.ID).Str("order_type", string(created.OrderType)).Float64("total", created.TotalPrice).Msg("order placed")
	return created, nil
}
