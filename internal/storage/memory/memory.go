package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"conti/internal/core"
	"conti/internal/storage"
)

// Store keeps every entity in process memory. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	transactions map[string]core.Transaction
	categories   map[string]core.Category
	budgets      map[string]core.Budget
	goals        map[string]core.Goal
	groups       map[string]core.Group
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		categories:   make(map[string]core.Category),
		budgets:      make(map[string]core.Budget),
		goals:        make(map[string]core.Goal),
		groups:       make(map[string]core.Group),
	}
}

// copies detach slices so callers never share backing arrays with the store
func copyTransaction(t core.Transaction) core.Transaction {
	t.Tags = append([]string(nil), t.Tags...)
	t.Items = append([]core.LineItem(nil), t.Items...)
	if t.LastRecurredAt != nil {
		last := *t.LastRecurredAt
		t.LastRecurredAt = &last
	}
	return t
}

func copyGoal(g core.Goal) core.Goal {
	if g.TargetDate != nil {
		td := *g.TargetDate
		g.TargetDate = &td
	}
	return g
}

func copyGroup(g core.Group) core.Group {
	g.Members = append([]string(nil), g.Members...)
	return g
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (string, error) {
	storage.PrepareNew(&t.ID, &t.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = copyTransaction(t)
	return t.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	return copyTransaction(t), nil
}

func (s *Store) ListTransactions(_ context.Context, groupID string) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.GroupID == groupID {
			out = append(out, copyTransaction(t))
		}
	}
	s.mu.RUnlock()
	storage.SortNewestFirst(out, func(t core.Transaction) (time.Time, string) { return t.CreatedAt, t.ID })
	return out, nil
}

func (s *Store) ListRecurringTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	out := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.IsRecurring {
			out = append(out, copyTransaction(t))
		}
	}
	s.mu.RUnlock()
	storage.SortNewestFirst(out, func(t core.Transaction) (time.Time, string) { return t.CreatedAt, t.ID })
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; !ok {
		return notFound("transaction", t.ID)
	}
	s.transactions[t.ID] = copyTransaction(t)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return notFound("transaction", id)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) AddCategory(_ context.Context, c core.Category) (string, error) {
	storage.PrepareNew(&c.ID, &c.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, notFound("category", id)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, groupID string) ([]core.Category, error) {
	s.mu.RLock()
	out := make([]core.Category, 0)
	for _, c := range s.categories {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	storage.SortNewestFirst(out, func(c core.Category) (time.Time, string) { return c.CreatedAt, c.ID })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return notFound("category", c.ID)
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) AddBudget(_ context.Context, b core.Budget) (string, error) {
	storage.PrepareNew(&b.ID, &b.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return b.ID, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, notFound("budget", id)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, groupID string) ([]core.Budget, error) {
	s.mu.RLock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.GroupID == groupID {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	storage.SortNewestFirst(out, func(b core.Budget) (time.Time, string) { return b.CreatedAt, b.ID })
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return notFound("budget", b.ID)
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return notFound("budget", id)
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) AddGoal(_ context.Context, g core.Goal) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = copyGoal(g)
	return g.ID, nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, notFound("goal", id)
	}
	return copyGoal(g), nil
}

func (s *Store) ListGoals(_ context.Context, groupID string) ([]core.Goal, error) {
	s.mu.RLock()
	out := make([]core.Goal, 0)
	for _, g := range s.goals {
		if g.GroupID == groupID {
			out = append(out, copyGoal(g))
		}
	}
	s.mu.RUnlock()
	storage.SortNewestFirst(out, func(g core.Goal) (time.Time, string) { return g.CreatedAt, g.ID })
	return out, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; !ok {
		return notFound("goal", g.ID)
	}
	s.goals[g.ID] = copyGoal(g)
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return notFound("goal", id)
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) AddGroup(_ context.Context, g core.Group) (string, error) {
	storage.PrepareNew(&g.ID, &g.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = copyGroup(g)
	return g.ID, nil
}

func (s *Store) GetGroup(_ context.Context, id string) (core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, notFound("group", id)
	}
	return copyGroup(g), nil
}

func (s *Store) FindGroupByMember(_ context.Context, uid string) (core.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if g.IsCouple() && g.HasMember(uid) {
			return copyGroup(g), nil
		}
	}
	return core.Group{}, notFound("group for member", uid)
}

func (s *Store) ListGroups(_ context.Context) ([]core.Group, error) {
	s.mu.RLock()
	out := make([]core.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, copyGroup(g))
	}
	s.mu.RUnlock()
	storage.SortNewestFirst(out, func(g core.Group) (time.Time, string) { return g.CreatedAt, g.ID })
	return out, nil
}
