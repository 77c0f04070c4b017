package cart

import (
	"sort"
	"sync"

	"github.com/bruttobar/pos-client/internal/domain"
)

// Store maps product id to a cart line. All operations are total and serialized
// behind a single mutex, so increment/decrement read-modify-writes never interleave.
type Store struct {
	mu    sync.Mutex
	lines map[string]*domain.CartLine
}

func NewStore() *Store {
	return &Store{lines: make(map[string]*domain.CartLine)}
}

// Increment adds one of item. A new line freezes the item's price, name, description and logo;
// later increments only bump the quantity.
func (s *Store) Increment(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if line, ok := s.lines[item.ID]; ok {
		line.Quantity++
		return
	}
	s.lines[item.ID] = &domain.CartLine{Item: item, Quantity: 1}
}

// Decrement removes one of item. A line that reaches zero is deleted; unknown items are ignored.
func (s *Store) Decrement(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[item.ID]
	if !ok {
		return
	}
	line.Quantity--
	if line.Quantity <= 0 {
		delete(s.lines, item.ID)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[string]*domain.CartLine)
}

// Total is recomputed from the current lines on every call.
func (s *Store) Total() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total domain.Money
	for _, line := range s.lines {
		total += line.Subtotal()
	}
	return total
}

// Quantity returns how many of the product are in the cart, 0 if none.
func (s *Store) Quantity(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line, ok := s.lines[id]; ok {
		return line.Quantity
	}
	return 0
}

// Lines returns a copy of the cart, ordered by product id.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}
