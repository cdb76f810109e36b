package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	rabbit "github.com/subhajitlucky/pradhanfresh-sub000/internal/infra/rabbitmq"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/pricing"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

// DefaultTaxPercent applies when no explicit rate is configured.
var DefaultTaxPercent = decimal.NewFromInt(18)

// OrderService owns the cart-to-order transaction and the order status
// lifecycle. Every mutating operation runs as one store transaction; events
// go out only after commit.
type OrderService struct {
	orders     repository.OrderRepository
	carts      repository.CartRepository
	ledger     *StockLedger
	tx         repository.TxManager
	publisher  rabbit.PublisherInterface
	taxPercent decimal.Decimal
}

func NewOrderService(orders repository.OrderRepository, carts repository.CartRepository, ledger *StockLedger, tx repository.TxManager, publisher rabbit.PublisherInterface) *OrderService {
	return &OrderService{
		orders:     orders,
		carts:      carts,
		ledger:     ledger,
		tx:         tx,
		publisher:  publisher,
		taxPercent: DefaultTaxPercent,
	}
}

// SetTaxPercent overrides the tax rate applied at checkout.
func (s *OrderService) SetTaxPercent(p decimal.Decimal) {
	s.taxPercent = p
}

// Checkout converts the user's cart into an order. The whole sequence —
// stock re-validation, number generation, order + item insert, stock debit,
// cart clear, history append — commits or rolls back as one unit.
func (s *OrderService) Checkout(ctx context.Context, input domain.CheckoutInput) (*domain.Order, error) {
	if err := validateCheckoutInput(&input); err != nil {
		return nil, err
	}

	addressJSON, err := json.Marshal(input.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("serialize delivery address: %w", err)
	}

	var order *domain.Order
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		cart, err := s.carts.FindByUserID(ctx, input.UserID)
		if err != nil {
			return err
		}
		if cart == nil || cart.IsEmpty() {
			return domain.ErrCartEmpty
		}

		// Cart state is not trusted: every line is re-checked against live,
		// row-locked stock at the moment of commit.
		products, err := s.ledger.ValidateCart(ctx, cart.Items)
		if err != nil {
			return err
		}

		now := time.Now()
		number, err := s.orders.NextOrderNumber(ctx, now.Year())
		if err != nil {
			return err
		}

		// Order items snapshot the current effective price, not the price
		// captured when the line entered the cart.
		lines := make([]domain.CartItem, len(cart.Items))
		items := make([]domain.OrderItem, len(cart.Items))
		deltas := make([]StockLine, len(cart.Items))
		for i, ci := range cart.Items {
			price := products[ci.ProductID].EffectivePrice()
			subtotal := pricing.ItemSubtotal(ci.Quantity, price)
			lines[i] = domain.CartItem{Quantity: ci.Quantity, Price: price, Subtotal: subtotal}
			items[i] = domain.OrderItem{
				ProductID: ci.ProductID,
				Quantity:  ci.Quantity,
				Price:     price,
				Subtotal:  subtotal,
			}
			deltas[i] = StockLine{ProductID: ci.ProductID, Quantity: ci.Quantity}
		}

		subtotal := pricing.CartTotal(lines)
		fee := pricing.DeliveryFee(subtotal)
		totals := pricing.ComputeOrderTotals(lines, fee, s.taxPercent, input.Discount)

		order = &domain.Order{
			OrderNumber:     number,
			UserID:          input.UserID,
			Status:          domain.StatusPending,
			Subtotal:        totals.Subtotal,
			DeliveryFee:     totals.DeliveryFee,
			Tax:             totals.Tax,
			Discount:        totals.Discount,
			TotalAmount:     totals.TotalAmount,
			DeliveryAddress: string(addressJSON),
			DeliveryDate:    input.DeliveryDate,
			DeliverySlot:    input.DeliverySlot,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   "unpaid",
			OrderNotes:      input.OrderNotes,
			Items:           items,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		if err := s.ledger.Apply(ctx, deltas, StockReduce); err != nil {
			return err
		}

		if err := s.carts.DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		if err := s.carts.UpdateTotals(ctx, cart.ID, decimal.Zero, now.Add(domain.CartTTL)); err != nil {
			return err
		}

		return s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
			OrderID:   order.ID,
			NewStatus: domain.StatusPending,
			Notes:     "order placed",
			ChangedBy: input.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	go s.publish(rabbit.RouteOrderCreated, domain.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	})

	return order, nil
}

// Cancel moves a user's own order to CANCELLED, restores the reserved stock
// and appends the audit entry, all in one transaction. Orders already shipped
// cannot be cancelled, only returned after delivery.
func (s *OrderService) Cancel(ctx context.Context, orderNumber string, userID uint64, reason string) (*domain.Order, error) {
	var (
		order *domain.Order
		old   domain.OrderStatus
	)
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.LockByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if o == nil || o.UserID != userID {
			// Another user's order presents as absent, not as forbidden.
			return domain.ErrOrderNotFound
		}
		if !o.Status.IsCancellable() {
			return &domain.IllegalTransitionError{From: o.Status, To: domain.StatusCancelled}
		}

		old = o.Status
		now := time.Now()
		o.Status = domain.StatusCancelled
		o.CancelledAt = &now
		o.CancellationReason = reason
		if err := s.orders.UpdateStatus(ctx, o); err != nil {
			return err
		}

		if err := s.ledger.Apply(ctx, stockLines(o.Items), StockRestore); err != nil {
			return err
		}

		if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
			OrderID:   o.ID,
			OldStatus: old,
			NewStatus: domain.StatusCancelled,
			Notes:     reason,
			ChangedBy: userID,
		}); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.publish(rabbit.RouteOrderCancelled, domain.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   old,
		NewStatus:   domain.StatusCancelled,
		ChangedBy:   userID,
		ChangedAt:   time.Now(),
	})

	return order, nil
}

// UpdateStatus applies an admin-driven transition, validated against the
// transition table. Stock is restored only when the move lands on CANCELLED
// (necessarily from a pre-shipment state); no other transition touches stock.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber string, newStatus domain.OrderStatus, notes string, adminID uint64) (*domain.Order, error) {
	if !newStatus.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", newStatus)}
	}

	var (
		order *domain.Order
		old   domain.OrderStatus
	)
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		o, err := s.orders.LockByNumber(ctx, orderNumber)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.ErrOrderNotFound
		}
		if !domain.CanTransition(o.Status, newStatus) {
			return &domain.IllegalTransitionError{From: o.Status, To: newStatus}
		}

		old = o.Status
		o.Status = newStatus
		if newStatus == domain.StatusCancelled {
			now := time.Now()
			o.CancelledAt = &now
			o.CancellationReason = notes
		}
		if err := s.orders.UpdateStatus(ctx, o); err != nil {
			return err
		}

		if newStatus == domain.StatusCancelled {
			if err := s.ledger.Apply(ctx, stockLines(o.Items), StockRestore); err != nil {
				return err
			}
		}

		if err := s.orders.AppendHistory(ctx, &domain.OrderStatusHistory{
			OrderID:   o.ID,
			OldStatus: old,
			NewStatus: newStatus,
			Notes:     notes,
			ChangedBy: adminID,
		}); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.publish(rabbit.RouteOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   old,
		NewStatus:   newStatus,
		ChangedBy:   adminID,
		ChangedAt:   time.Now(),
	})

	return order, nil
}

// GetByNumber returns the order when it exists and belongs to userID.
func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string, userID uint64) (*domain.Order, error) {
	o, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o == nil || o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

// History returns the order's audit trail, newest first.
func (s *OrderService) History(ctx context.Context, orderNumber string, userID uint64) ([]domain.OrderStatusHistory, error) {
	o, err := s.GetByNumber(ctx, orderNumber, userID)
	if err != nil {
		return nil, err
	}
	return s.orders.HistoryForOrder(ctx, o.ID)
}

func (s *OrderService) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), routingKey, payload); err != nil {
		slog.Error("publish order event", "routingKey", routingKey, "err", err)
	}
}

func stockLines(items []domain.OrderItem) []StockLine {
	lines := make([]StockLine, len(items))
	for i, it := range items {
		lines[i] = StockLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

func validateCheckoutInput(input *domain.CheckoutInput) error {
	if input.PaymentMethod == "" {
		return &domain.ValidationError{Field: "paymentMethod", Message: "payment method is required"}
	}
	addr := input.DeliveryAddress
	if addr.FullName == "" || addr.Line1 == "" || addr.City == "" || addr.PostalCode == "" {
		return &domain.ValidationError{Field: "deliveryAddress", Message: "full name, address line, city and postal code are required"}
	}
	if input.Discount.IsNegative() {
		return &domain.ValidationError{Field: "discount", Message: "discount cannot be negative"}
	}
	return nil
}
