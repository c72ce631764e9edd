package models

import "time"

type OrderType string

const (
	OrderDineIn   OrderType = "DINE_IN"
	OrderTakeaway OrderType = "TAKEAWAY"
	OrderDelivery OrderType = "DELIVERY"
)

type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Order is the payload submitted to the order-creation endpoint. Type-specific
// fields: TableNumber for dine-in, DeliveryAddress for delivery.
type Order struct {
	ID              string      `json:"id,omitempty"`
	Items           []OrderItem `json:"items"`
	OrderType       OrderType   `json:"orderType"`
	TableNumber     string      `json:"tableNumber,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress,omitempty"`
	Subtotal        float64     `json:"subtotal"`
	DeliveryFee     float64     `json:"deliveryFee"`
	Tax             float64     `json:"tax"`
	TotalPrice      float64     `json:"totalPrice"`
	Notes           string      `json:"notes,omitempty"`
	Status          string      `json:"status,omitempty"`
	CreatedAt       time.Time   `json:"createdAt,omitempty"`
}

// CartItem is a persisted cart line.
type CartItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}
