package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
)

// TxManager runs fn inside one store transaction. Repository calls made with
// the context fn receives join that transaction; the transaction commits when
// fn returns nil and rolls back otherwise.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository reads catalog rows and writes the stock columns. All other
// product fields belong to the catalog subsystem.
type ProductRepository interface {
	// FindByID returns nil, nil when the product does not exist.
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	// LockByID reads the product with a row lock; only meaningful inside a
	// transaction, where it serializes concurrent stock writers.
	LockByID(ctx context.Context, id uint64) (*domain.Product, error)
	// UpdateStock writes the stock count and the derived is_available flag.
	UpdateStock(ctx context.Context, id uint64, stock int, available bool) error
}

// CartRepository persists carts and their lines.
type CartRepository interface {
	// FindByUserID returns the user's cart with items, or nil, nil.
	FindByUserID(ctx context.Context, userID uint64) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) error
	SaveItem(ctx context.Context, item *domain.CartItem) error
	DeleteItem(ctx context.Context, itemID uint64) error
	// DeleteItems removes every line of the cart; the cart row stays.
	DeleteItems(ctx context.Context, cartID uint64) error
	// UpdateTotals persists the recomputed total and the refreshed expiry.
	UpdateTotals(ctx context.Context, cartID uint64, total decimal.Decimal, expiresAt time.Time) error
	// DeleteExpiredItems empties every cart whose expiry has passed and
	// returns how many carts were reaped.
	DeleteExpiredItems(ctx context.Context, now time.Time) (int64, error)
}

// OrderRepository persists orders, their immutable items, and the append-only
// status history.
type OrderRepository interface {
	// Create inserts the order and its items in one go.
	Create(ctx context.Context, order *domain.Order) error
	// FindByNumber returns the order with items, or nil, nil.
	FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	// LockByNumber is FindByNumber with a row lock on the order row.
	LockByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error)
	// NextOrderNumber claims the next PF-<year>-NNNNNN identifier. Must run
	// inside the same transaction as the subsequent Create.
	NextOrderNumber(ctx context.Context, year int) (string, error)
	// UpdateStatus persists status, payment status and cancellation fields.
	UpdateStatus(ctx context.Context, order *domain.Order) error
	AppendHistory(ctx context.Context, entry *domain.OrderStatusHistory) error
	// HistoryForOrder returns entries newest first.
	HistoryForOrder(ctx context.Context, orderID uint64) ([]domain.OrderStatusHistory, error)
}
