package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/mocks"
)

type orderServiceFixture struct {
	orders    *mocks.MockOrderRepository
	carts     *mocks.MockCartRepository
	products  *mocks.MockProductRepository
	publisher *mocks.MockPublisher
	svc       *OrderService
}

func newOrderServiceFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		orders:    new(mocks.MockOrderRepository),
		carts:     new(mocks.MockCartRepository),
		products:  new(mocks.MockProductRepository),
		publisher: new(mocks.MockPublisher),
	}
	ledger := NewStockLedger(f.products)
	f.svc = NewOrderService(f.orders, f.carts, ledger, mocks.TxManagerStub{}, f.publisher)
	return f
}

func checkoutInput() domain.CheckoutInput {
	return domain.CheckoutInput{
		UserID: 7,
		DeliveryAddress: domain.DeliveryAddress{
			FullName:   "Asha Pradhan",
			Phone:      "9800000000",
			Line1:      "12 Market Road",
			City:       "Pune",
			State:      "MH",
			PostalCode: "411001",
		},
		PaymentMethod: "cod",
		Discount:      decimal.Zero,
	}
}

func TestOrderService_Checkout(t *testing.T) {
	f := newOrderServiceFixture()

	cart := userCart(domain.CartItem{
		ID: 1, CartID: 10, ProductID: 1, Quantity: 2,
		Price:    decimal.RequireFromString("80"),
		Subtotal: decimal.RequireFromString("160"),
	})
	f.carts.On("FindByUserID", mock.Anything, uint64(7)).Return(cart, nil)
	f.products.On("LockByID", mock.Anything, uint64(1)).Return(saleProduct(1, "100", "80", 5), nil)
	f.orders.On("NextOrderNumber", mock.Anything, mock.AnythingOfType("int")).Return("PF-2026-000001", nil)

	var created *domain.Order
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Order)
		created.ID = 55
	})
	f.products.On("UpdateStock", mock.Anything, uint64(1), 3, true).Return(nil)
	f.carts.On("DeleteItems", mock.Anything, uint64(10)).Return(nil)
	f.carts.On("UpdateTotals", mock.Anything, uint64(10),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.IsZero() }),
		mock.Anything).Return(nil)

	var history *domain.OrderStatusHistory
	f.orders.On("AppendHistory", mock.Anything, mock.AnythingOfType("*domain.OrderStatusHistory")).Return(nil).Run(func(args mock.Arguments) {
		history = args.Get(1).(*domain.OrderStatusHistory)
	})
	f.publisher.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()

	order, err := f.svc.Checkout(context.Background(), checkoutInput())

	assert.NoError(t, err)
	assert.Equal(t, "PF-2026-000001", order.OrderNumber)
	assert.Equal(t, domain.StatusPending, order.Status)

	// Money breakdown: 160 subtotal, flat 50 fee below threshold, 18% tax.
	assert.True(t, decimal.RequireFromString("160").Equal(order.Subtotal))
	assert.True(t, decimal.RequireFromString("50").Equal(order.DeliveryFee))
	assert.True(t, decimal.RequireFromString("28.8").Equal(order.Tax))
	assert.True(t, decimal.RequireFromString("238.8").Equal(order.TotalAmount))

	recomputed := order.Subtotal.Add(order.DeliveryFee).Add(order.Tax).Sub(order.Discount)
	assert.True(t, recomputed.Sub(order.TotalAmount).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")))

	// Item snapshot carries the current effective price.
	assert.Len(t, order.Items, 1)
	assert.True(t, decimal.RequireFromString("80").Equal(order.Items[0].Price))
	assert.True(t, decimal.RequireFromString("160").Equal(order.Items[0].Subtotal))

	// Address is an embedded snapshot, not a reference.
	var addr domain.DeliveryAddress
	assert.NoError(t, json.Unmarshal([]byte(order.DeliveryAddress), &addr))
	assert.Equal(t, "Asha Pradhan", addr.FullName)

	// Initial PENDING history entry.
	assert.Equal(t, uint64(55), history.OrderID)
	assert.Equal(t, domain.OrderStatus(""), history.OldStatus)
	assert.Equal(t, domain.StatusPending, history.NewStatus)

	time.Sleep(100 * time.Millisecond)
	f.orders.AssertExpectations(t)
	f.carts.AssertExpectations(t)
	f.products.AssertExpectations(t)
}

func TestOrderService_Checkout_FreeShippingOverThreshold(t *testing.T) {
	f := newOrderServiceFixture()

	cart := userCart(domain.CartItem{
		ID: 1, CartID: 10, ProductID: 1, Quantity: 2,
		Price:    decimal.RequireFromString("300"),
		Subtotal: decimal.RequireFromString("600"),
	})
	f.carts.On("FindByUserID", mock.Anything, uint64(7)).Return(cart, nil)
	f.products.On("LockByID", mock.Anything, uint64(1)).Return(saleProduct(1, "300", "", 5), nil)
	f.orders.On("NextOrderNumber", mock.Anything, mock.AnythingOfType("int")).Return("PF-2026-000002", nil)
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Order).ID = 56
	})
	f.products.On("UpdateStock", mock.Anything, uint64(1), 3, true).Return(nil)
	f.carts.On("DeleteItems", mock.Anything, uint64(10)).Return(nil)
	f.carts.On("UpdateTotals", mock.Anything, uint64(10), mock.Anything, mock.Anything).Return(nil)
	f.orders.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()

	order, err := f.svc.Checkout(context.Background(), checkoutInput())

	assert.NoError(t, err)
	assert.True(t, order.DeliveryFee.IsZero())
	assert.True(t, decimal.RequireFromString("708").Equal(order.TotalAmount))
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	tests := []struct {
		name string
		cart *domain.Cart
	}{
		{"no cart row", nil},
		{"cart with no items", userCart()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()
			f.carts.On("FindByUserID", mock.Anything, uint64(7)).Return(tt.cart, nil)

			_, err := f.svc.Checkout(context.Background(), checkoutInput())

			assert.ErrorIs(t, err, domain.ErrCartEmpty)
			f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_Checkout_StockFailureAbortsEverything(t *testing.T) {
	f := newOrderServiceFixture()

	cart := userCart(
		domain.CartItem{
			ID: 1, CartID: 10, ProductID: 1, Quantity: 2,
			Price:    decimal.RequireFromString("80"),
			Subtotal: decimal.RequireFromString("160"),
		},
		domain.CartItem{
			ID: 2, CartID: 10, ProductID: 2, Quantity: 4,
			Price:    decimal.RequireFromString("30"),
			Subtotal: decimal.RequireFromString("120"),
		},
	)
	f.carts.On("FindByUserID", mock.Anything, uint64(7)).Return(cart, nil)
	f.products.On("LockByID", mock.Anything, uint64(1)).Return(saleProduct(1, "100", "80", 5), nil)
	// Sold down to 1 between cart edit and checkout.
	f.products.On("LockByID", mock.Anything, uint64(2)).Return(saleProduct(2, "30", "", 1), nil)

	_, err := f.svc.Checkout(context.Background(), checkoutInput())

	var serrs domain.StockErrors
	assert.ErrorAs(t, err, &serrs)
	assert.Len(t, serrs, 1)
	assert.Equal(t, uint64(2), serrs[0].ProductID)

	f.orders.AssertNotCalled(t, "NextOrderNumber", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.carts.AssertNotCalled(t, "DeleteItems", mock.Anything, mock.Anything)
}

func TestOrderService_Checkout_InputValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CheckoutInput)
	}{
		{"missing payment method", func(in *domain.CheckoutInput) { in.PaymentMethod = "" }},
		{"missing address line", func(in *domain.CheckoutInput) { in.DeliveryAddress.Line1 = "" }},
		{"missing city", func(in *domain.CheckoutInput) { in.DeliveryAddress.City = "" }},
		{"negative discount", func(in *domain.CheckoutInput) { in.Discount = decimal.RequireFromString("-5") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()
			input := checkoutInput()
			tt.mutate(&input)

			_, err := f.svc.Checkout(context.Background(), input)

			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
			f.carts.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
		})
	}
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:          55,
		OrderNumber: "PF-2026-000001",
		UserID:      7,
		Status:      domain.StatusPending,
		Items: []domain.OrderItem{
			{ID: 1, OrderID: 55, ProductID: 1, Quantity: 2,
				Price:    decimal.RequireFromString("80"),
				Subtotal: decimal.RequireFromString("160")},
		},
	}
}

func TestOrderService_Cancel(t *testing.T) {
	f := newOrderServiceFixture()

	f.orders.On("LockByNumber", mock.Anything, "PF-2026-000001").Return(pendingOrder(), nil)

	var updated *domain.Order
	f.orders.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*domain.Order)
	})
	f.products.On("LockByID", mock.Anything, uint64(1)).Return(saleProduct(1, "100", "80", 3), nil)
	f.products.On("UpdateStock", mock.Anything, uint64(1), 5, true).Return(nil)

	var history *domain.OrderStatusHistory
	f.orders.On("AppendHistory", mock.Anything, mock.AnythingOfType("*domain.OrderStatusHistory")).Return(nil).Run(func(args mock.Arguments) {
		history = args.Get(1).(*domain.OrderStatusHistory)
	})
	f.publisher.On("Publish", mock.Anything, "order.cancelled", mock.Anything).Return(nil).Maybe()

	order, err := f.svc.Cancel(context.Background(), "PF-2026-000001", 7, "changed my mind")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, order.Status)
	assert.NotNil(t, updated.CancelledAt)
	assert.Equal(t, "changed my mind", updated.CancellationReason)

	// Exactly one history row, PENDING -> CANCELLED.
	assert.Equal(t, domain.StatusPending, history.OldStatus)
	assert.Equal(t, domain.StatusCancelled, history.NewStatus)
	f.orders.AssertNumberOfCalls(t, "AppendHistory", 1)

	time.Sleep(100 * time.Millisecond)
	f.orders.AssertExpectations(t)
	f.products.AssertExpectations(t)
}

func TestOrderService_Cancel_AlreadyCancelled(t *testing.T) {
	f := newOrderServiceFixture()

	order := pendingOrder()
	order.Status = domain.StatusCancelled
	f.orders.On("LockByNumber", mock.Anything, "PF-2026-000001").Return(order, nil)

	_, err := f.svc.Cancel(context.Background(), "PF-2026-000001", 7, "again")

	var terr *domain.IllegalTransitionError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.StatusCancelled, terr.From)

	// No double restore, no extra history.
	f.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything)
}

func TestOrderService_Cancel_ShippedOrder(t *testing.T) {
	f := newOrderServiceFixture()

	order := pendingOrder()
	order.Status = domain.StatusShipped
	f.orders.On("LockByNumber", mock.Anything, "PF-2026-000001").Return(order, nil)

	_, err := f.svc.Cancel(context.Background(), "PF-2026-000001", 7, "")

	var terr *domain.IllegalTransitionError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.StatusShipped, terr.From)
}

func TestOrderService_Cancel_NotFoundOrNotOwned(t *testing.T) {
	t.Run("missing order", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.orders.On("LockByNumber", mock.Anything, "PF-2026-999999").Return(nil, nil)

		_, err := f.svc.Cancel(context.Background(), "PF-2026-999999", 7, "")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("someone else's order", func(t *testing.T) {
		f := newOrderServiceFixture()
		order := pendingOrder()
		order.UserID = 8
		f.orders.On("LockByNumber", mock.Anything, "PF-2026-000001").Return(order, nil)

		_, err := f.svc.Cancel(context.Background(), "PF-2026-000001", 7, "")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestOrderService_UpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		from        domain.OrderStatus
		to          domain.OrderStatus
		wantIllegal bool
	}{
		{"pending to confirmed", domain.StatusPending, domain.StatusConfirmed, false},
		{"pending to shipped skips steps", domain.StatusPending, domain.StatusShipped, true},
		{"shipped to delivered", domain.StatusShipped, domain.StatusDelivered, false},
		{"delivered to returned", domain.StatusDelivered, domain.StatusReturned, false},
		{"delivered back to confirmed", domain.StatusDelivered, domain.StatusConfirmed, true},
		{"same status no-op", domain.StatusPending, domain.StatusPending, true},
		{"returned is terminal", domain.StatusReturned, domain.StatusConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()

			order := pendingOrder()
			order.Status = tt.from
			f.orders.On("LockByNumber", mock.Anything, "PF-2026-000001").Return(order, nil)

			if !tt.wantIllegal {
				f.orders.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)
				f.orders.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
				f.publisher.On("Publish", mock.Anything, "order.status_changed", mock.Anything).Return(nil).Maybe()
			}

			got, err := f.svc.UpdateStatus(context.Background(), "PF-2026-000001", tt.to, "", 99)

			if tt.wantIllegal {
				var terr *domain.IllegalTransitionError
				assert.ErrorAs(t, err, &terr)
				assert.Equal(t, tt.from, terr.From)
				f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, got.Status)
				// Non-cancellation transitions never touch stock.
				f.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderService_UpdateStatus_AdminCancelRestoresStock(t *testing.T) {
	f := newOrderServiceFixture()

	order := pendingOrder()
	order.Status = domain.StatusProcessing
	f.orders.On("LockByNumber", mock.Anything, "PF-2026-000001").Return(order, nil)
	f.orders.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)
	f.products.On("LockByID", mock.Anything, uint64(1)).Return(saleProduct(1, "100", "80", 0), nil)
	f.products.On("UpdateStock", mock.Anything, uint64(1), 2, true).Return(nil)

	var history *domain.OrderStatusHistory
	f.orders.On("AppendHistory", mock.Anything, mock.AnythingOfType("*domain.OrderStatusHistory")).Return(nil).Run(func(args mock.Arguments) {
		history = args.Get(1).(*domain.OrderStatusHistory)
	})
	f.publisher.On("Publish", mock.Anything, "order.status_changed", mock.Anything).Return(nil).Maybe()

	got, err := f.svc.UpdateStatus(context.Background(), "PF-2026-000001", domain.StatusCancelled, "supplier failure", 99)

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, domain.StatusProcessing, history.OldStatus)
	assert.Equal(t, uint64(99), history.ChangedBy)

	time.Sleep(100 * time.Millisecond)
	f.products.AssertExpectations(t)
}

func TestOrderService_UpdateStatus_UnknownStatus(t *testing.T) {
	f := newOrderServiceFixture()

	_, err := f.svc.UpdateStatus(context.Background(), "PF-2026-000001", domain.OrderStatus("MISPLACED"), "", 99)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	f.orders.AssertNotCalled(t, "LockByNumber", mock.Anything, mock.Anything)
}

func TestOrderService_GetByNumber_Ownership(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.On("FindByNumber", mock.Anything, "PF-2026-000001").Return(pendingOrder(), nil)

	got, err := f.svc.GetByNumber(context.Background(), "PF-2026-000001", 7)
	assert.NoError(t, err)
	assert.Equal(t, "PF-2026-000001", got.OrderNumber)

	_, err = f.svc.GetByNumber(context.Background(), "PF-2026-000001", 8)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderService_History(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.On("FindByNumber", mock.Anything, "PF-2026-000001").Return(pendingOrder(), nil)
	f.orders.On("HistoryForOrder", mock.Anything, uint64(55)).Return([]domain.OrderStatusHistory{
		{ID: 2, OrderID: 55, OldStatus: domain.StatusPending, NewStatus: domain.StatusConfirmed},
		{ID: 1, OrderID: 55, NewStatus: domain.StatusPending},
	}, nil)

	history, err := f.svc.History(context.Background(), "PF-2026-000001", 7)

	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, domain.StatusConfirmed, history[0].NewStatus)
}
