package cart

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"

	"storefront-api/internal/apperr"
	"storefront-api/internal/domain"
)

const (
	p1 = "11111111-1111-1111-1111-111111111111"
	p2 = "22222222-2222-2222-2222-222222222222"
	p3 = "33333333-3333-3333-3333-333333333333"
)

type stubCatalog struct {
	products map[string]domain.Product
	err      error
	calls    int
}

func newStubCatalog(products ...domain.Product) *stubCatalog {
	m := make(map[string]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &stubCatalog{products: m}
}

func (s *stubCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *stubCatalog) ListByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	var out []domain.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, s.err
}

func TestProcessItemsPricesEveryLine(t *testing.T) {
	catalog := newStubCatalog(
		domain.Product{ID: p1, Name: "One", PriceCents: 1000},
		domain.Product{ID: p2, Name: "Two", PriceCents: 500},
	)

	items, total, err := ProcessItems(context.Background(), catalog, []RequestedItem{
		{ProductID: p1, Quantity: 2},
		{ProductID: p2, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.CartItem{
		{ProductID: p1, Quantity: 2, TotalCents: 2000},
		{ProductID: p2, Quantity: 3, TotalCents: 1500},
	}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("unexpected items %+v", items)
	}
	if total != 3500 {
		t.Fatalf("expected total 3500, got %d", total)
	}
}

func TestProcessItemsUnknownProductFailsBatch(t *testing.T) {
	catalog := newStubCatalog(domain.Product{ID: p1, PriceCents: 1000})

	items, total, err := ProcessItems(context.Background(), catalog, []RequestedItem{
		{ProductID: p1, Quantity: 1},
		{ProductID: p3, Quantity: 1},
	})
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if items != nil || total != 0 {
		t.Fatalf("expected no partial output, got %+v total=%d", items, total)
	}
}

func TestProcessItemsCatalogFailureIsInternal(t *testing.T) {
	catalog := newStubCatalog()
	catalog.err = errors.New("db down")

	_, _, err := ProcessItems(context.Background(), catalog, []RequestedItem{{ProductID: p1, Quantity: 1}})
	if apperr.CodeOf(err) != apperr.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestMergeItemsSumsAndKeepsOrder(t *testing.T) {
	existing := []domain.CartItem{
		{ProductID: p1, Quantity: 2, TotalCents: 2000},
		{ProductID: p2, Quantity: 3, TotalCents: 1500},
	}
	incoming := []domain.CartItem{
		{ProductID: p3, Quantity: 1, TotalCents: 700},
		{ProductID: p1, Quantity: 1, TotalCents: 1000},
	}
	existingCopy := append([]domain.CartItem(nil), existing...)
	incomingCopy := append([]domain.CartItem(nil), incoming...)

	merged := MergeItems(existing, incoming)
	want := []domain.CartItem{
		{ProductID: p1, Quantity: 3, TotalCents: 3000},
		{ProductID: p2, Quantity: 3, TotalCents: 1500},
		{ProductID: p3, Quantity: 1, TotalCents: 700},
	}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("unexpected merge %+v", merged)
	}
	if !reflect.DeepEqual(existing, existingCopy) || !reflect.DeepEqual(incoming, incomingCopy) {
		t.Fatalf("inputs were modified")
	}
}

func TestMergeItemsIsCommutativePerProduct(t *testing.T) {
	a := []domain.CartItem{
		{ProductID: p1, Quantity: 2, TotalCents: 2000},
		{ProductID: p2, Quantity: 1, TotalCents: 500},
	}
	b := []domain.CartItem{
		{ProductID: p2, Quantity: 4, TotalCents: 2000},
		{ProductID: p3, Quantity: 1, TotalCents: 900},
	}
	ab := sortedByProduct(MergeItems(a, b))
	ba := sortedByProduct(MergeItems(b, a))
	if !reflect.DeepEqual(ab, ba) {
		t.Fatalf("merge not commutative: %+v vs %+v", ab, ba)
	}
	if CalculateTotalAmount(ab) != CalculateTotalAmount(a)+CalculateTotalAmount(b) {
		t.Fatalf("merge changed the combined total")
	}
}

func TestMergeItemsCollapsesDuplicatesInOneBatch(t *testing.T) {
	merged := MergeItems(nil, []domain.CartItem{
		{ProductID: p1, Quantity: 1, TotalCents: 100},
		{ProductID: p1, Quantity: 2, TotalCents: 200},
	})
	if len(merged) != 1 || merged[0].Quantity != 3 || merged[0].TotalCents != 300 {
		t.Fatalf("unexpected merge %+v", merged)
	}
}

func TestCalculateTotalAmount(t *testing.T) {
	items := []domain.CartItem{{TotalCents: 3000}, {TotalCents: 1500}}
	first := CalculateTotalAmount(items)
	if first != 4500 || CalculateTotalAmount(items) != first {
		t.Fatalf("expected idempotent 4500, got %d", first)
	}
	if CalculateTotalAmount(nil) != 0 {
		t.Fatalf("expected 0 for empty cart")
	}
}

func TestProcessItemsRejectsAmountOverflow(t *testing.T) {
	catalog := newStubCatalog(domain.Product{ID: p1, PriceCents: 1_000_000_000_000_000_000})

	items, total, err := ProcessItems(context.Background(), catalog, []RequestedItem{{ProductID: p1, Quantity: maxQuantity}})
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if items != nil || total != 0 {
		t.Fatalf("expected no output, got %+v total=%d", items, total)
	}
}

func TestProcessItemsAcceptsLargestPrice(t *testing.T) {
	catalog := newStubCatalog(domain.Product{ID: p1, PriceCents: 100_000_000_000})

	items, total, err := ProcessItems(context.Background(), catalog, []RequestedItem{{ProductID: p1, Quantity: maxQuantity}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items[0].TotalCents != maxLineCents || total != maxLineCents {
		t.Fatalf("unexpected line %+v total=%d", items[0], total)
	}
}

func TestMergeItemsSaturatesInsteadOfWrapping(t *testing.T) {
	merged := MergeItems(
		[]domain.CartItem{{ProductID: p1, Quantity: 1, TotalCents: math.MaxInt64 - 10}},
		[]domain.CartItem{{ProductID: p1, Quantity: 1, TotalCents: 100}},
	)
	if merged[0].TotalCents != math.MaxInt64 {
		t.Fatalf("expected saturated total, got %d", merged[0].TotalCents)
	}
	if _, err := checkLines(merged); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckLines(t *testing.T) {
	total, err := checkLines([]domain.CartItem{
		{ProductID: p1, Quantity: maxQuantity, TotalCents: 3000},
		{ProductID: p2, Quantity: 1, TotalCents: 1500},
	})
	if err != nil || total != 4500 {
		t.Fatalf("expected 4500, got %d err=%v", total, err)
	}

	cases := map[string][]domain.CartItem{
		"quantity over cap": {{ProductID: p1, Quantity: maxQuantity + 1, TotalCents: 100}},
		"negative line":     {{ProductID: p1, Quantity: 1, TotalCents: -1}},
		"line over cap":     {{ProductID: p1, Quantity: 1, TotalCents: maxLineCents + 1}},
	}
	for name, items := range cases {
		if _, err := checkLines(items); apperr.CodeOf(err) != apperr.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestCalculateTotalAmountSaturates(t *testing.T) {
	items := []domain.CartItem{{TotalCents: math.MaxInt64}, {TotalCents: 1}}
	if got := CalculateTotalAmount(items); got != math.MaxInt64 {
		t.Fatalf("expected saturation, got %d", got)
	}
}

func TestValidateRequested(t *testing.T) {
	if apperr.CodeOf(validateRequested(nil)) != apperr.CodeValidation {
		t.Fatalf("expected validation error for empty list")
	}
	err := validateRequested([]RequestedItem{{ProductID: "nope", Quantity: 0}})
	typed := apperr.As(err)
	if typed == nil || typed.Code() != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if problems, ok := typed.Details().([]fieldError); !ok || len(problems) != 2 {
		t.Fatalf("expected two field problems, got %+v", typed.Details())
	}
	if err := validateRequested([]RequestedItem{{ProductID: p1, Quantity: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func sortedByProduct(items []domain.CartItem) []domain.CartItem {
	out := append([]domain.CartItem(nil), items...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
