package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/stats"
	"conti/internal/storage"
)

const recentTransactions = 5

// Dashboard is the summary shown on a group's home screen.
type Dashboard struct {
	stats.FinancialStats
	Year               int                `json:"year"`
	Budgets            []BudgetView       `json:"budgets"`
	RecentTransactions []core.Transaction `json:"recentTransactions"`
}

// StatsService computes dashboards and caches them per group and filter.
type StatsService struct {
	transactions storage.TransactionRepository
	budgets      storage.BudgetRepository
	cache        cache.Cache[Dashboard]
	group        singleflight.Group

	// generations counts invalidations per group; a load started under an
	// older generation is returned but not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

func NewStatsService(transactions storage.TransactionRepository, budgets storage.BudgetRepository, c cache.Cache[Dashboard]) *StatsService {
	return &StatsService{transactions: transactions, budgets: budgets, cache: c, generations: make(map[string]uint64)}
}

func (s *StatsService) generation(groupID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[groupID]
}

func dashboardKey(groupID string, year int, filter core.FilterOptions) string {
	return groupID + "|" + strconv.Itoa(year) + "|" + filter.Key()
}

// Dashboard returns the statistics of the group's transactions matching
// filter. Monthly rows cover year, or the current year when year is 0.
func (s *StatsService) Dashboard(ctx context.Context, groupID string, filter core.FilterOptions, year int) (Dashboard, error) {
	if year == 0 {
		year = filter.Year
	}
	if year == 0 {
		year = time.Now().Year()
	}

	key := dashboardKey(groupID, year, filter)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			return d, nil
		}
	}

	gen := s.generation(groupID)
	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	// callers joining a shared load must not inherit the first caller's
	// cancellation
	v, err, shared := s.group.Do(flightKey, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), groupID, filter, year)
	})
	if err != nil {
		return Dashboard{}, err
	}
	d := v.(Dashboard)
	if shared {
		slog.DebugContext(ctx, "Dashboard load shared", "group_id", groupID)
	}
	if s.cache != nil {
		s.mu.Lock()
		if s.generations[groupID] == gen {
			s.cache.Set(key, d)
		}
		s.mu.Unlock()
	}
	return d, nil
}

func (s *StatsService) compute(ctx context.Context, groupID string, filter core.FilterOptions, year int) (Dashboard, error) {
	var (
		txs     []core.Transaction
		budgets []core.Budget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.transactions.ListTransactions(gctx, groupID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		budgets, err = s.budgets.ListBudgets(gctx, groupID)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	// spent comes from the listing above, not the stored value, which the
	// event worker may not have refreshed yet
	d := Dashboard{
		Year:    year,
		Budgets: make([]BudgetView, 0, len(budgets)),
	}
	for _, b := range budgets {
		b.Spent = stats.BudgetSpent(b, txs)
		b.Recompute()
		d.Budgets = append(d.Budgets, NewBudgetView(b))
	}
	txs = filter.Apply(txs)
	d.FinancialStats = stats.Compute(txs, year)
	if len(txs) > recentTransactions {
		d.RecentTransactions = txs[:recentTransactions]
	} else {
		d.RecentTransactions = txs
	}
	return d, nil
}

// Invalidate drops every cached dashboard of the group.
func (s *StatsService) Invalidate(groupID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.generations[groupID]++
	n := s.cache.DeletePrefix(groupID + "|")
	s.mu.Unlock()
	if n > 0 {
		slog.Debug("Invalidated dashboards", "group_id", groupID, "entries", n)
	}
}
