package httpx

import "time"

type CreateCartRequest struct {
	CustomerID string `json:"customer_id"`
}

type CartItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartResponse struct {
	CartID     string        `json:"cart_id"`
	CustomerID string        `json:"customer_id"`
	CreatedAt  time.Time     `json:"created_at"`
	Items      []CartItemDTO `json:"items"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutRequest converts a cart into an order. Quantities come from the
// cart (they are what the ledger holds); the request supplies the display
// name and unit price per product.
type CheckoutRequest struct {
	CartID          string            `json:"cart_id"`
	PaymentMethod   string            `json:"payment_method"`
	ShippingAddress string            `json:"shipping_address"`
	Items           []CheckoutItemDTO `json:"items"`
}

type CheckoutItemDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderResponse struct {
	OrderID         string              `json:"order_id"`
	CustomerID      string              `json:"customer_id"`
	OrderDate       time.Time           `json:"order_date"`
	Status          string              `json:"status"`
	TotalAmount     float64             `json:"total_amount"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	Items           []OrderItemResponse `json:"items"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
