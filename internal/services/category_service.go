package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/storage"
)

// CategoryService manages a group's categories and seeds the defaults.
type CategoryService struct {
	categories storage.CategoryRepository
}

func NewCategoryService(categories storage.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// outsideGroup hides entities of other groups behind ErrNotFound.
func outsideGroup(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

// List returns the group's categories, seeding the defaults on first use.
func (s *CategoryService) List(ctx context.Context, groupID string) ([]core.Category, error) {
	cats, err := s.categories.ListCategories(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) > 0 {
		return cats, nil
	}

	for _, c := range core.DefaultCategories(groupID, time.Now().UTC()) {
		if _, err := s.categories.AddCategory(ctx, c); err != nil {
			return nil, fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	slog.InfoContext(ctx, "Seeded default categories", "group_id", groupID)

	return s.categories.ListCategories(ctx, groupID)
}

func (s *CategoryService) Get(ctx context.Context, groupID, id string) (core.Category, error) {
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.GroupID != groupID {
		return core.Category{}, outsideGroup("category", id)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.IsDefault = false
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	id, err := s.categories.AddCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return s.categories.GetCategory(ctx, id)
}

func (s *CategoryService) Update(ctx context.Context, groupID, id string, patch CategoryPatch) (core.Category, error) {
	c, err := s.Get(ctx, groupID, id)
	if err != nil {
		return core.Category{}, err
	}
	patch.Apply(&c)
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, groupID, id string) error {
	if _, err := s.Get(ctx, groupID, id); err != nil {
		return err
	}
	return s.categories.DeleteCategory(ctx, id)
}

// Resolve fills whichever of categoryID and name is missing from the
// group's categories. Unknown references are returned unchanged.
func (s *CategoryService) Resolve(ctx context.Context, groupID, categoryID, name string) (string, string) {
	if categoryID != "" && name != "" {
		return categoryID, name
	}
	if categoryID != "" {
		c, err := s.Get(ctx, groupID, categoryID)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				slog.WarnContext(ctx, "Category lookup failed", "category_id", categoryID, "error", err)
			}
			return categoryID, name
		}
		return c.ID, c.Name
	}
	if name != "" {
		cats, err := s.categories.ListCategories(ctx, groupID)
		if err != nil {
			slog.WarnContext(ctx, "Category lookup failed", "name", name, "error", err)
			return categoryID, name
		}
		if c, ok := core.FindCategoryByName(cats, name); ok {
			return c.ID, c.Name
		}
	}
	return categoryID, name
}
