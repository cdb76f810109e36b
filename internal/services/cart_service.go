package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subhajitlucky/pradhanfresh-sub000/internal/domain"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/pricing"
	"github.com/subhajitlucky/pradhanfresh-sub000/internal/repository"
)

// CartService owns the pre-purchase basket: add, update, remove, clear, and
// the reconciling read. Every mutation re-captures the touched line's
// effective price, recomputes its subtotal and the cart total, and pushes the
// expiry window forward.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	ledger   *StockLedger
	tx       repository.TxManager
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, ledger *StockLedger, tx repository.TxManager) *CartService {
	return &CartService{carts: carts, products: products, ledger: ledger, tx: tx}
}

// AddItem puts qty units of a product into the user's cart, creating the cart
// lazily on first add. Adding a product already present merges into the
// existing line, and the merged quantity is what gets validated against stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint64, qty int) (*domain.CartSnapshot, error) {
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}

	var snap *domain.CartSnapshot
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		cart, err := s.loadOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		newQty := qty
		existing := cart.ItemForProduct(productID)
		if existing != nil {
			newQty = existing.Quantity + qty
			if newQty > domain.MaxItemQuantity {
				return &domain.ValidationError{
					Field:   "quantity",
					Message: fmt.Sprintf("cart line cannot exceed %d units", domain.MaxItemQuantity),
				}
			}
		}

		if err := s.ledger.Validate(ctx, productID, newQty); err != nil {
			return err
		}

		price := product.EffectivePrice()
		if existing != nil {
			existing.Quantity = newQty
			existing.Price = price
			existing.Subtotal = pricing.ItemSubtotal(newQty, price)
			if err := s.carts.SaveItem(ctx, existing); err != nil {
				return err
			}
		} else {
			item := domain.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  newQty,
				Price:     price,
				Subtotal:  pricing.ItemSubtotal(newQty, price),
			}
			if err := s.carts.SaveItem(ctx, &item); err != nil {
				return err
			}
			cart.Items = append(cart.Items, item)
		}

		snap, err = s.finish(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// UpdateItemQty replaces the quantity of one cart line.
func (s *CartService) UpdateItemQty(ctx context.Context, userID, itemID uint64, qty int) (*domain.CartSnapshot, error) {
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}

	var snap *domain.CartSnapshot
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		cart, item, err := s.loadCartItem(ctx, userID, itemID)
		if err != nil {
			return err
		}

		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		if err := s.ledger.Validate(ctx, item.ProductID, qty); err != nil {
			return err
		}

		price := product.EffectivePrice()
		item.Quantity = qty
		item.Price = price
		item.Subtotal = pricing.ItemSubtotal(qty, price)
		if err := s.carts.SaveItem(ctx, item); err != nil {
			return err
		}

		snap, err = s.finish(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// RemoveItem deletes one cart line. Removing the last line zeroes the total
// but keeps the cart row as the user's persistent shell.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint64) (*domain.CartSnapshot, error) {
	var snap *domain.CartSnapshot
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		cart, item, err := s.loadCartItem(ctx, userID, itemID)
		if err != nil {
			return err
		}

		if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		kept := cart.Items[:0]
		for _, it := range cart.Items {
			if it.ID != item.ID {
				kept = append(kept, it)
			}
		}
		cart.Items = kept

		snap, err = s.finish(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Clear empties the cart. Clearing an already-empty or missing cart is a
// benign no-op so two concurrent clears both succeed.
func (s *CartService) Clear(ctx context.Context, userID uint64) (*domain.CartSnapshot, error) {
	var snap *domain.CartSnapshot
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		cart, err := s.carts.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			snap = &domain.CartSnapshot{Cart: &domain.Cart{UserID: userID, TotalAmount: decimal.Zero}}
			return nil
		}

		if !cart.IsEmpty() {
			if err := s.carts.DeleteItems(ctx, cart.ID); err != nil {
				return err
			}
			cart.Items = nil
		}

		snap, err = s.finish(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Get returns the cart after a reconciliation pass: each line is re-checked
// against live product state. Lines whose product vanished, went unavailable
// or dropped below the requested quantity are flagged, not dropped; price
// drift is repaired in place so the stored total never lies.
func (s *CartService) Get(ctx context.Context, userID uint64) (*domain.CartSnapshot, error) {
	var snap *domain.CartSnapshot
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		cart, err := s.carts.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			snap = &domain.CartSnapshot{Cart: &domain.Cart{UserID: userID, TotalAmount: decimal.Zero}}
			return nil
		}

		issues, changed, err := s.reconcile(ctx, cart)
		if err != nil {
			return err
		}

		if changed {
			snap, err = s.refresh(ctx, cart)
			if err != nil {
				return err
			}
		} else {
			snap = &domain.CartSnapshot{Cart: cart}
		}
		snap.Issues = issues
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ReapExpired empties every cart past its expiry window. Runs from the
// background reaper, never from a request path.
func (s *CartService) ReapExpired(ctx context.Context) (int64, error) {
	return s.carts.DeleteExpiredItems(ctx, time.Now())
}

func (s *CartService) loadOrCreateCart(ctx context.Context, userID uint64) (*domain.Cart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	cart = &domain.Cart{
		UserID:      userID,
		TotalAmount: decimal.Zero,
		ExpiresAt:   time.Now().Add(domain.CartTTL),
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) loadCartItem(ctx context.Context, userID, itemID uint64) (*domain.Cart, *domain.CartItem, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, domain.ErrCartItemNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, &cart.Items[i], nil
		}
	}
	return nil, nil, domain.ErrCartItemNotFound
}

// finish completes a mutation: reconcile the remaining lines against live
// product state, persist the recomputed total and rolled expiry, and return
// the snapshot with any warnings attached.
func (s *CartService) finish(ctx context.Context, cart *domain.Cart) (*domain.CartSnapshot, error) {
	issues, _, err := s.reconcile(ctx, cart)
	if err != nil {
		return nil, err
	}
	snap, err := s.refresh(ctx, cart)
	if err != nil {
		return nil, err
	}
	snap.Issues = issues
	return snap, nil
}

// refresh recomputes the cart total from its lines and rolls the expiry
// window, then returns the snapshot. The total is always recomputed from
// scratch, never patched incrementally.
func (s *CartService) refresh(ctx context.Context, cart *domain.Cart) (*domain.CartSnapshot, error) {
	cart.TotalAmount = pricing.CartTotal(cart.Items)
	cart.ExpiresAt = time.Now().Add(domain.CartTTL)
	if err := s.carts.UpdateTotals(ctx, cart.ID, cart.TotalAmount, cart.ExpiresAt); err != nil {
		return nil, err
	}
	return &domain.CartSnapshot{Cart: cart}, nil
}

func (s *CartService) reconcile(ctx context.Context, cart *domain.Cart) ([]domain.CartIssue, bool, error) {
	var issues []domain.CartIssue
	changed := false

	for i := range cart.Items {
		item := &cart.Items[i]
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, false, err
		}

		if product == nil {
			issues = append(issues, domain.CartIssue{
				CartItemID: item.ID,
				ProductID:  item.ProductID,
				Kind:       domain.IssueProductMissing,
				Message:    "product no longer exists",
			})
			continue
		}
		if !product.IsAvailable {
			issues = append(issues, domain.CartIssue{
				CartItemID:     item.ID,
				ProductID:      item.ProductID,
				Kind:           domain.IssueUnavailable,
				Message:        fmt.Sprintf("%s is currently unavailable", product.Name),
				AvailableStock: product.Stock,
			})
		} else if product.Stock < item.Quantity {
			issues = append(issues, domain.CartIssue{
				CartItemID:     item.ID,
				ProductID:      item.ProductID,
				Kind:           domain.IssueInsufficientStock,
				Message:        fmt.Sprintf("only %d available for %s", product.Stock, product.Name),
				AvailableStock: product.Stock,
			})
		}

		if current := product.EffectivePrice(); !current.Equal(item.Price) {
			issues = append(issues, domain.CartIssue{
				CartItemID:    item.ID,
				ProductID:     item.ProductID,
				Kind:          domain.IssuePriceChanged,
				Message:       fmt.Sprintf("price of %s changed from %s to %s", product.Name, item.Price, current),
				PreviousPrice: item.Price,
				CurrentPrice:  current,
			})
			item.Price = current
			item.Subtotal = pricing.ItemSubtotal(item.Quantity, current)
			if err := s.carts.SaveItem(ctx, item); err != nil {
				return nil, false, err
			}
			changed = true
		}
	}

	return issues, changed, nil
}

func validateQuantity(qty int) error {
	if qty < domain.MinItemQuantity || qty > domain.MaxItemQuantity {
		return &domain.ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity must be between %d and %d", domain.MinItemQuantity, domain.MaxItemQuantity),
		}
	}
	return nil
}
