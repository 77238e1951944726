package store

import (
	"slices"
	"sync"

	"github.com/vyrodovalexey/pizza-api/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
// Records are kept in insertion order and looked up by linear scan.
type MemoryStore struct {
	mu     sync.RWMutex
	pizzas []model.Pizza
	nextID int
}

// NewMemoryStore creates a MemoryStore holding the built-in seed records.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pizzas: model.SeedPizzas(),
		nextID: model.FirstAssignedID,
	}
}

// NewMemoryStoreWithSeed creates a MemoryStore holding the given records.
// The next assigned ID is one past the highest seed ID, and never lower
// than model.FirstAssignedID. The caller must pass records with unique
// IDs, as returned by LoadSeedFile.
func NewMemoryStoreWithSeed(seed []model.Pizza) *MemoryStore {
	nextID := model.FirstAssignedID
	for _, p := range seed {
		if p.ID >= nextID {
			nextID = p.ID + 1
		}
	}

	return &MemoryStore{
		pizzas: slices.Clone(seed),
		nextID: nextID,
	}
}

// List returns all pizzas from the store.
func (s *MemoryStore) List() []model.Pizza {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pizzas := make([]model.Pizza, len(s.pizzas))
	copy(pizzas, s.pizzas)

	return pizzas
}

// Get retrieves a pizza by its ID.
func (s *MemoryStore) Get(id int) (model.Pizza, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Pizza{}, false
	}

	return s.pizzas[idx], true
}

// Add appends a pizza under the next ID and returns the stored record.
func (s *MemoryStore) Add(p model.Pizza) model.Pizza {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	s.pizzas = append(s.pizzas, p)

	return p
}

// Update replaces the stored pizza with the same ID. Unknown IDs are ignored.
func (s *MemoryStore) Update(p model.Pizza) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(p.ID)
	if idx < 0 {
		return
	}

	s.pizzas[idx] = p
}

// Delete removes a pizza by its ID. Unknown IDs are ignored.
func (s *MemoryStore) Delete(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return
	}

	s.pizzas = slices.Delete(s.pizzas, idx, idx+1)
}

// Len returns the number of stored pizzas.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pizzas)
}

// indexOf returns the slot of the first pizza with the given ID, or -1.
// Callers must hold s.mu.
func (s *MemoryStore) indexOf(id int) int {
	return slices.IndexFunc(s.pizzas, func(p model.Pizza) bool {
		return p.ID == id
	})
}
