package order

import (
	"context"
	"sort"
	"sync"
)

// Repository is the port for order persistence.
type Repository interface {
	Save(ctx context.Context, o *Order) error
	// Get returns ErrOrderNotFound for unknown IDs.
	Get(ctx context.Context, orderID string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
}

// MemoryRepository is the in-memory Repository. Orders are stored and
// returned as copies so callers never alias the stored Items slice.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*Order)}
}

func (r *MemoryRepository) Save(ctx context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, orderID string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.Before(out[j].OrderDate) })
	return out, nil
}

func copyOrder(o *Order) *Order {
	dup := *o
	dup.Items = append([]OrderItem(nil), o.Items...)
	return &dup
}
