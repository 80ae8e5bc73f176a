package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProduct struct {
	title      string
	price      string
	outOfStock bool
}

// memRepo is a map-backed Repository for exercising Service without a database.
type memRepo struct {
	mu       sync.Mutex
	nextID   int
	products map[string]memProduct
	lines    map[string]*Line
}

func newMemRepo() *memRepo {
	return &memRepo{
		products: make(map[string]memProduct),
		lines:    make(map[string]*Line),
	}
}

func (r *memRepo) Add(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return ErrProductNotFound
	}
	for _, l := range r.lines {
		if l.UserID == userID && l.ProductID == productID {
			return nil
		}
	}
	r.nextID++
	id := fmt.Sprintf("line-%d", r.nextID)
	r.lines[id] = &Line{ID: id, UserID: userID, ProductID: productID, Quantity: 1}
	return nil
}

func (r *memRepo) List(_ context.Context, userID string) ([]LineView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LineView
	for _, l := range r.lines {
		if l.UserID != userID {
			continue
		}
		p := r.products[l.ProductID]
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return nil, err
		}
		out = append(out, LineView{
			ID:         l.ID,
			ProductID:  l.ProductID,
			Title:      p.title,
			Quantity:   l.Quantity,
			UnitPrice:  p.price,
			LineTotal:  price.Mul(decimal.NewFromInt(int64(l.Quantity))).StringFixed(2),
			OutOfStock: p.outOfStock,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) GetLine(_ context.Context, id, userID string) (*Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[id]
	if !ok || l.UserID != userID {
		return nil, ErrLineNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memRepo) SetQuantity(_ context.Context, id, userID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[id]
	if !ok || l.UserID != userID {
		return ErrLineNotFound
	}
	l.Quantity = qty
	return nil
}

func (r *memRepo) Remove(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lines[id]
	if !ok || l.UserID != userID {
		return ErrLineNotFound
	}
	delete(r.lines, id)
	return nil
}

func (r *memRepo) SetShippingAddress(_ context.Context, userID, addressID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.UserID == userID {
			a := addressID
			l.ShippingAddressID = &a
		}
	}
	return nil
}

func (r *memRepo) SetCoupon(_ context.Context, userID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.UserID == userID {
			c := code
			l.CouponCode = &c
			l.CouponApplied = true
		}
	}
	return nil
}

func (r *memRepo) ClearCoupon(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.UserID == userID {
			l.CouponCode = nil
			l.CouponApplied = false
		}
	}
	return nil
}

func (r *memRepo) AppliedCoupon(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.UserID == userID && l.CouponApplied && l.CouponCode != nil {
			return *l.CouponCode, nil
		}
	}
	return "", nil
}

func onlyLine(t *testing.T, st *State) LineView {
	t.Helper()
	require.Len(t, st.Items, 1)
	return st.Items[0]
}

func TestAdd_NewLineStartsAtOne(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "10.00"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, onlyLine(t, st).Quantity)
	assert.Equal(t, "10.00", st.Subtotal)
}

func TestAdd_ExistingLineIsNoOp(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "10.00"}
	svc := NewService(repo)

	_, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, onlyLine(t, st).Quantity, "re-adding must not inflate quantity")
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Add(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAdjust_IncrementAndDecrement(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "2.50"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	lineID := onlyLine(t, st).ID

	st, err = svc.Adjust(context.Background(), "u1", lineID, ActionIncrement)
	require.NoError(t, err)
	assert.Equal(t, 2, onlyLine(t, st).Quantity)
	assert.Equal(t, "5.00", st.Subtotal)

	st, err = svc.Adjust(context.Background(), "u1", lineID, ActionDecrement)
	require.NoError(t, err)
	assert.Equal(t, 1, onlyLine(t, st).Quantity)
}

func TestAdjust_IncrementCappedAtMax(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "1.00"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	lineID := onlyLine(t, st).ID
	require.NoError(t, repo.SetQuantity(context.Background(), lineID, "u1", MaxLineQuantity))

	st, err = svc.Adjust(context.Background(), "u1", lineID, ActionIncrement)
	require.NoError(t, err)
	assert.Equal(t, MaxLineQuantity, onlyLine(t, st).Quantity, "increment past the cap is a no-op")
}

func TestAdjust_DecrementFlooredAtOne(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "1.00"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	lineID := onlyLine(t, st).ID

	st, err = svc.Adjust(context.Background(), "u1", lineID, ActionDecrement)
	require.NoError(t, err)
	assert.Equal(t, 1, onlyLine(t, st).Quantity, "decrement below one is a no-op, not a removal")
}

func TestAdjust_Remove(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "1.00"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)
	lineID := onlyLine(t, st).ID

	st, err = svc.Adjust(context.Background(), "u1", lineID, ActionRemove)
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.Equal(t, "0.00", st.Subtotal)
}

func TestAdjust_UnsupportedAction(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "1.00"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), "u1", onlyLine(t, st).ID, "duplicate")
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestAdjust_OtherUsersLineNotVisible(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "1.00"}
	svc := NewService(repo)

	st, err := svc.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), "u2", onlyLine(t, st).ID, ActionIncrement)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestState_SubtotalSpansLines(t *testing.T) {
	repo := newMemRepo()
	repo.products["p1"] = memProduct{title: "Widget", price: "10.00"}
	repo.products["p2"] = memProduct{title: "Gadget", price: "0.99"}
	svc := NewService(repo)

	ctx := context.Background()
	_, err := svc.Add(ctx, "u1", "p1")
	require.NoError(t, err)
	st, err := svc.Add(ctx, "u1", "p2")
	require.NoError(t, err)

	require.Len(t, st.Items, 2)
	assert.Equal(t, "10.99", st.Subtotal)

	sub, err := svc.Subtotal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "10.99", sub.StringFixed(2))
}
