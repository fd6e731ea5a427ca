package cart

import (
	"context"
	"sync"
)

// Repository is the port for cart persistence.
type Repository interface {
	Save(ctx context.Context, c *Cart) error
	// Get returns ErrCartNotFound for unknown IDs.
	Get(ctx context.Context, cartID string) (*Cart, error)
}

// MemoryRepository is the in-memory Repository. Carts are stored and
// returned as copies so callers never alias the stored Items map.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*Cart)}
}

func (r *MemoryRepository) Save(ctx context.Context, c *Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[c.ID] = copyCart(c)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, cartID string) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(c), nil
}

func copyCart(c *Cart) *Cart {
	dup := *c
	dup.Items = make(map[string]int, len(c.Items))
	for productID, qty := range c.Items {
		dup.Items[productID] = qty
	}
	return &dup
}
