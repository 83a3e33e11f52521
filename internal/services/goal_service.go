package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/storage"
)

type GoalService struct {
	goals      storage.GoalRepository
	categories *CategoryService
}

func NewGoalService(goals storage.GoalRepository, categories *CategoryService) *GoalService {
	return &GoalService{goals: goals, categories: categories}
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.CurrentAmount = decimal.Zero
	if g.StartDate.IsZero() {
		g.StartDate = time.Now().UTC()
	}
	if g.CategoryID != "" || g.Category != "" {
		g.CategoryID, g.Category = s.categories.Resolve(ctx, g.GroupID, g.CategoryID, g.Category)
	}
	g.Recompute()
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	id, err := s.goals.AddGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	return s.goals.GetGoal(ctx, id)
}

func (s *GoalService) Get(ctx context.Context, groupID, id string) (core.Goal, error) {
	g, err := s.goals.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}
	if g.GroupID != groupID {
		return core.Goal{}, outsideGroup("goal", id)
	}
	return g, nil
}

func (s *GoalService) List(ctx context.Context, groupID string) ([]core.Goal, error) {
	goals, err := s.goals.ListGoals(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) Update(ctx context.Context, groupID, id string, patch GoalPatch) (core.Goal, error) {
	g, err := s.Get(ctx, groupID, id)
	if err != nil {
		return core.Goal{}, err
	}
	patch.Apply(&g)
	if g.CategoryID != "" && g.Category == "" {
		g.CategoryID, g.Category = s.categories.Resolve(ctx, groupID, g.CategoryID, "")
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.goals.UpdateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, groupID, id string) error {
	if _, err := s.Get(ctx, groupID, id); err != nil {
		return err
	}
	return s.goals.DeleteGoal(ctx, id)
}

// Contribute adds a positive amount to the goal's savings.
func (s *GoalService) Contribute(ctx context.Context, groupID, id string, amount decimal.Decimal) (core.Goal, error) {
	g, err := s.Get(ctx, groupID, id)
	if err != nil {
		return core.Goal{}, err
	}
	if err := g.Contribute(amount); err != nil {
		return core.Goal{}, err
	}
	if err := s.goals.UpdateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}
