package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) FindByUserID(ctx context.Context, userID uint64) (*domain.Cart, error) {
	var cart domain.Cart
	err := dbFrom(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	return dbFrom(ctx, r.db).Create(cart).Error
}

func (r *cartRepo) SaveItem(ctx context.Context, item *domain.CartItem) error {
	return dbFrom(ctx, r.db).Save(item).Error
}

func (r *cartRepo) DeleteItem(ctx context.Context, itemID uint64) error {
	return dbFrom(ctx, r.db).Delete(&domain.CartItem{}, itemID).Error
}

func (r *cartRepo) DeleteItems(ctx context.Context, cartID uint64) error {
	return dbFrom(ctx, r.db).
		Where("cart_id = ?", cartID).
		Delete(&domain.CartItem{}).Error
}

func (r *cartRepo) UpdateTotals(ctx context.Context, cartID uint64, total decimal.Decimal, expiresAt time.Time) error {
	return dbFrom(ctx, r.db).
		Model(&domain.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"total_amount": total,
			"expires_at":   expiresAt,
		}).Error
}

func (r *cartRepo) DeleteExpiredItems(ctx context.Context, now time.Time) (int64, error) {
	db := dbFrom(ctx, r.db)

	var expired []uint64
	err := db.Model(&domain.Cart{}).
		Where("expires_at < ? AND total_amount > 0", now).
		Pluck("id", &expired).Error
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := db.Where("cart_id IN ?", expired).Delete(&domain.CartItem{}).Error; err != nil {
		return 0, err
	}
	err = db.Model(&domain.Cart{}).
		Where("id IN ?", expired).
		Update("total_amount", decimal.Zero).Error
	if err != nil {
		return 0, err
	}
	return int64(len(expired)), nil
}
