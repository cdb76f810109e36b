package http

import "github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"

type AddToCartRequest struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=99"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=99"`
}

type CheckoutRequest struct {
	DeliveryAddress domain.DeliveryAddress `json:"deliveryAddress" binding:"required"`
	DeliveryDate    string                 `json:"deliveryDate,omitempty"`
	DeliverySlot    string                 `json:"deliverySlot,omitempty"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
	OrderNotes      string                 `json:"orderNotes,omitempty"`
	Discount        string                 `json:"discount,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes,omitempty"`
}
