package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

type txKey struct{}

// TxManager wraps gorm transactions and threads the transaction handle
// through the context so every repository call inside the callback joins it.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) repository.TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction handle carried by ctx, or the base handle
// when the call runs outside a transaction.
func dbFrom(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return base.WithContext(ctx)
}
