package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
	"storefront-api/internal/money"
)

const (
	// maxQuantity bounds a single request line and a stored cart line alike.
	maxQuantity = 10000
	// maxLineCents is the most a line can cost at the highest accepted price.
	maxLineCents = money.MaxCents * maxQuantity
)

// RequestedItem is a product reference with a quantity as submitted by a client.
type RequestedItem struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=10000"`
}

// Catalog resolves products to their authoritative price.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// ProcessItems prices each requested item against the catalog. The returned
// total covers this batch only. Any unknown product fails the whole batch.
func ProcessItems(ctx context.Context, catalog Catalog, requested []RequestedItem) ([]domain.CartItem, int64, error) {
	processed := make([]domain.CartItem, 0, len(requested))
	for _, item := range requested {
		p, err := catalog.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, 0, apperr.NotFound(fmt.Sprintf("product %s not found", item.ProductID))
			}
			return nil, 0, apperr.Internal(fmt.Errorf("lookup product %s: %w", item.ProductID, err))
		}
		lineCents, ok := mulCents(p.PriceCents, item.Quantity)
		if !ok || lineCents > maxLineCents {
			return nil, 0, apperr.Validation("cart line amount out of range").
				WithDetails(map[string]string{"productId": p.ID})
		}
		processed = append(processed, domain.CartItem{
			ProductID:  p.ID,
			Quantity:   item.Quantity,
			TotalCents: lineCents,
		})
	}
	total, err := checkLines(processed)
	if err != nil {
		return nil, 0, err
	}
	return processed, total, nil
}

// MergeItems combines existing and incoming lines keyed by product id. Lines
// for the same product are summed in quantity and total. Existing lines keep
// their position and new products are appended in the order first seen.
// Neither input is modified. Sums that would overflow saturate, so checkLines
// rejects the result instead of seeing a wrapped value.
func MergeItems(existing, incoming []domain.CartItem) []domain.CartItem {
	merged := make([]domain.CartItem, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, src := range [][]domain.CartItem{existing, incoming} {
		for _, it := range src {
			if pos, ok := index[it.ProductID]; ok {
				merged[pos].Quantity = addQuantity(merged[pos].Quantity, it.Quantity)
				merged[pos].TotalCents = saturatingAdd(merged[pos].TotalCents, it.TotalCents)
				continue
			}
			index[it.ProductID] = len(merged)
			merged = append(merged, it)
		}
	}
	return merged
}

// CalculateTotalAmount sums the line totals. Lines are expected to have
// passed checkLines; an overflowing sum saturates at math.MaxInt64.
func CalculateTotalAmount(items []domain.CartItem) int64 {
	var total int64
	for _, it := range items {
		total = saturatingAdd(total, it.TotalCents)
	}
	return total
}

// checkLines enforces the stored line bounds and returns the cart total.
func checkLines(items []domain.CartItem) (int64, error) {
	var total int64
	for _, it := range items {
		if it.Quantity > maxQuantity {
			return 0, apperr.Validation(fmt.Sprintf("quantity per product must not exceed %d", maxQuantity)).
				WithDetails(map[string]any{"productId": it.ProductID, "quantity": it.Quantity})
		}
		if it.TotalCents < 0 || it.TotalCents > maxLineCents {
			return 0, apperr.Validation("cart line amount out of range").
				WithDetails(map[string]string{"productId": it.ProductID})
		}
		var ok bool
		if total, ok = addCents(total, it.TotalCents); !ok {
			return 0, apperr.Validation("cart total out of range")
		}
	}
	return total, nil
}

func mulCents(priceCents int64, quantity int) (int64, bool) {
	q := int64(quantity)
	if priceCents < 0 || q < 0 {
		return 0, false
	}
	if q != 0 && priceCents > math.MaxInt64/q {
		return 0, false
	}
	return priceCents * q, true
}

func addCents(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func saturatingAdd(a, b int64) int64 {
	if sum, ok := addCents(a, b); ok {
		return sum
	}
	return math.MaxInt64
}

func addQuantity(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func withoutItem(items []domain.CartItem, productID string) ([]domain.CartItem, bool) {
	out := make([]domain.CartItem, 0, len(items))
	found := false
	for _, it := range items {
		if it.ProductID == productID {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateRequested(items []RequestedItem) error {
	if len(items) == 0 {
		return apperr.Validation("cartItems must contain at least one item")
	}
	var problems []fieldError
	for i, it := range items {
		if _, err := uuid.Parse(it.ProductID); err != nil {
			problems = append(problems, fieldError{Field: fmt.Sprintf("cartItems[%d].productId", i), Message: "must be a valid id"})
		}
		if it.Quantity < 1 || it.Quantity > maxQuantity {
			problems = append(problems, fieldError{Field: fmt.Sprintf("cartItems[%d].quantity", i), Message: fmt.Sprintf("must be between 1 and %d", maxQuantity)})
		}
	}
	if len(problems) > 0 {
		return apperr.Validation("invalid cart items").WithDetails(problems)
	}
	return nil
}
