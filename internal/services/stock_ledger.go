package services

import (
	"context"
	"fmt"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

// StockDirection is the sign of a stock delta.
type StockDirection string

const (
	StockReduce  StockDirection = "REDUCE"
	StockRestore StockDirection = "RESTORE"
)

// StockLine is one product/quantity pair a delta applies to.
type StockLine struct {
	ProductID uint64
	Quantity  int
}

// StockLedger owns every read and write of product stock. All mutating flows
// (checkout, cancellation, admin cancellation) go through Apply so the
// read-modify-write stays inside the caller's transaction.
type StockLedger struct {
	products repository.ProductRepository
}

func NewStockLedger(products repository.ProductRepository) *StockLedger {
	return &StockLedger{products: products}
}

// Validate checks one requested quantity against live stock without locking.
// Used at cart-mutation time; checkout re-checks with ValidateCart because
// stock can change between basket edits and commit.
func (l *StockLedger) Validate(ctx context.Context, productID uint64, qty int) error {
	p, err := l.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if serr := checkStock(p, productID, qty); serr != nil {
		return serr
	}
	return nil
}

// ValidateCart re-checks every cart line with row locks, so the stock a
// checkout saw cannot be sold out from under it before the debit. Returns the
// locked products keyed by id on success, or the full itemized
// domain.StockErrors list on failure.
func (l *StockLedger) ValidateCart(ctx context.Context, items []domain.CartItem) (map[uint64]*domain.Product, error) {
	locked := make(map[uint64]*domain.Product, len(items))
	var failures domain.StockErrors

	for _, it := range items {
		p, err := l.products.LockByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if serr := checkStock(p, it.ProductID, it.Quantity); serr != nil {
			failures = append(failures, serr)
			continue
		}
		locked[it.ProductID] = p
	}

	if len(failures) > 0 {
		return nil, failures
	}
	return locked, nil
}

// Apply writes one signed delta per line. REDUCE floors at zero rather than
// erroring: clamping keeps the ledger consistent even if an over-subscription
// slips past validation. is_available tracks stock > 0 on every write.
func (l *StockLedger) Apply(ctx context.Context, lines []StockLine, direction StockDirection) error {
	for _, line := range lines {
		p, err := l.products.LockByID(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			// The product was removed after the order existed; nothing to
			// credit or debit.
			continue
		}

		newStock := p.Stock
		switch direction {
		case StockReduce:
			newStock = p.Stock - line.Quantity
			if newStock < 0 {
				newStock = 0
			}
		case StockRestore:
			newStock = p.Stock + line.Quantity
		default:
			return fmt.Errorf("unknown stock direction %q", direction)
		}

		if err := l.products.UpdateStock(ctx, line.ProductID, newStock, newStock > 0); err != nil {
			return err
		}
	}
	return nil
}

func checkStock(p *domain.Product, productID uint64, qty int) *domain.StockError {
	if p == nil {
		return &domain.StockError{
			ProductID: productID,
			Requested: qty,
			Message:   "Product not found",
		}
	}
	if !p.IsAvailable {
		return &domain.StockError{
			ProductID:      p.ID,
			Requested:      qty,
			AvailableStock: p.Stock,
			Message:        fmt.Sprintf("%s is currently unavailable", p.Name),
		}
	}
	if p.Stock < qty {
		return &domain.StockError{
			ProductID:      p.ID,
			Requested:      qty,
			AvailableStock: p.Stock,
			Message:        fmt.Sprintf("only %d available for %s", p.Stock, p.Name),
		}
	}
	return nil
}
