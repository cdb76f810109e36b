package mysql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

const orderNumberPrefix = "PF"

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	// gorm cascades the Items association, so the order and its items land
	// in one insert sequence on the current transaction.
	if err := dbFrom(ctx, r.db).Create(order).Error; err != nil {
		return err
	}
	if order.ID == 0 {
		return errors.New("order insert did not assign an id")
	}
	return nil
}

func (r *orderRepo) FindByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.findByNumber(dbFrom(ctx, r.db), orderNumber)
}

func (r *orderRepo) LockByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	db := dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.findByNumber(db, orderNumber)
}

func (r *orderRepo) findByNumber(db *gorm.DB, orderNumber string) (*domain.Order, error) {
	var o domain.Order
	err := db.Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := dbFrom(ctx, r.db).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NextOrderNumber claims one identifier of the form PF-<year>-NNNNNN. The
// locked read of the current per-year maximum serializes concurrent checkouts
// on the store, so a sequence value is never observed twice.
func (r *orderRepo) NextOrderNumber(ctx context.Context, year int) (string, error) {
	db := dbFrom(ctx, r.db)
	prefix := fmt.Sprintf("%s-%d-", orderNumberPrefix, year)

	var numbers []string
	err := db.Model(&domain.Order{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error
	if err != nil {
		return "", err
	}

	last := ""
	if len(numbers) > 0 {
		last = numbers[0]
	}
	return nextInSequence(prefix, last)
}

// nextInSequence appends the zero-padded successor of last's sequence to the
// prefix, starting at 000001 when no order exists for the year yet.
func nextInSequence(prefix, last string) (string, error) {
	seq := 1
	if last != "" {
		raw := strings.TrimPrefix(last, prefix)
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("malformed order number %q: %w", last, err)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%06d", prefix, seq), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, order *domain.Order) error {
	return dbFrom(ctx, r.db).
		Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":              order.Status,
			"payment_status":      order.PaymentStatus,
			"cancelled_at":        order.CancelledAt,
			"cancellation_reason": order.CancellationReason,
		}).Error
}

func (r *orderRepo) AppendHistory(ctx context.Context, entry *domain.OrderStatusHistory) error {
	return dbFrom(ctx, r.db).Create(entry).Error
}

func (r *orderRepo) HistoryForOrder(ctx context.Context, orderID uint64) ([]domain.OrderStatusHistory, error) {
	var out []domain.OrderStatusHistory
	err := dbFrom(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
