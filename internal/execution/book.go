package execution

import (
	"mm_sim/internal/domain"

	"github.com/google/uuid"
)

// LimitBook holds the market maker's resting limit orders in insertion order.
// It belongs to a single run and is not safe for concurrent use.
type LimitBook struct {
	orders []*domain.RestingOrder
}

// NewLimitBook creates an empty book.
func NewLimitBook() *LimitBook {
	return &LimitBook{}
}

// Insert appends an order and returns its ID. The caller guarantees Volume > 0.
func (b *LimitBook) Insert(o domain.RestingOrder) string {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	b.orders = append(b.orders, &o)
	return o.ID
}

// Len returns the number of resting orders.
func (b *LimitBook) Len() int { return len(b.orders) }

// Get returns a copy of the order with the given ID.
func (b *LimitBook) Get(id string) (domain.RestingOrder, bool) {
	for _, o := range b.orders {
		if o.ID == id {
			return *o, true
		}
	}
	return domain.RestingOrder{}, false
}

// Orders returns copies of all resting orders in insertion order.
func (b *LimitBook) Orders() []domain.RestingOrder {
	out := make([]domain.RestingOrder, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out
}

// Sweep makes one pass over the book at time now.
//
// Expired orders (now > ToTime) are removed without being offered to match and are
// returned. Orders not yet active (now < FromTime) are kept untouched. Active orders
// are offered to match in insertion order; match returns true when the order
// executed, which removes it.
//
// The pass iterates a snapshot and rebuilds the live set from survivors.
func (b *LimitBook) Sweep(now int, match func(o *domain.RestingOrder) bool) (expired []domain.RestingOrder) {
	snapshot := b.orders
	survivors := make([]*domain.RestingOrder, 0, len(snapshot))

	for _, o := range snapshot {
		switch {
		case o.IsExpired(now):
			expired = append(expired, *o)
		case now < o.FromTime:
			survivors = append(survivors, o)
		default:
			if !match(o) {
				survivors = append(survivors, o)
			}
		}
	}

	b.orders = survivors
	return expired
}
