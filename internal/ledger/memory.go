package ledger

import (
	"context"
	"sync"

	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
)

// MemoryStore is an in-memory Store for tests and single-process setups.
// Durability is the SQLite store's job; this one only keeps the same
// atomicity contract (Apply swaps both records under one lock).
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	reservations map[reservationKey]domain.Reservation
}

type reservationKey struct {
	holderID  string
	productID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[string]domain.Product),
		reservations: make(map[reservationKey]domain.Reservation),
	}
}

func (s *MemoryStore) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryStore) PutProduct(ctx context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.ProductID] = p
	return nil
}

func (s *MemoryStore) GetReservation(ctx context.Context, holderID, productID string) (domain.Reservation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[reservationKey{holderID, productID}]
	return r, ok, nil
}

func (s *MemoryStore) Apply(ctx context.Context, p domain.Product, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.ProductID] = p
	s.reservations[reservationKey{r.HolderID, r.ProductID}] = r
	return nil
}
