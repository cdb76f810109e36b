package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := dbFrom(ctx, r.db).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) LockByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	err := dbFrom(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) UpdateStock(ctx context.Context, id uint64, stock int, available bool) error {
	return dbFrom(ctx, r.db).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":        stock,
			"is_available": available,
		}).Error
}
