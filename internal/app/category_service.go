package app

import (
	"context"
	"fmt"

	"github.com/SigitArif/POS/internal/storage"
)

type CategoryService struct {
	categories storage.CategoryRepository
}

func NewCategoryService(categories storage.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// Add registers a category. Adding an existing one is a no-op.
func (s *CategoryService) Add(ctx context.Context, name string) (string, error) {
	input := categoryInput{Name: storage.NormalizeCategory(name)}
	if err := validateInput("category", input); err != nil {
		return "", err
	}
	if err := s.categories.Insert(ctx, input.Name); err != nil {
		return "", fmt.Errorf("add category: %w", err)
	}
	return input.Name, nil
}

// Remove fails with storage.ErrCategoryInUse while any product references
// the category.
func (s *CategoryService) Remove(ctx context.Context, name string) error {
	input := categoryInput{Name: storage.NormalizeCategory(name)}
	if err := validateInput("category", input); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, input.Name); err != nil {
		return fmt.Errorf("remove category: %w", err)
	}
	return nil
}

// RemoveUnused deletes every category no product references.
func (s *CategoryService) RemoveUnused(ctx context.Context) error {
	if err := s.categories.DeleteAll(ctx); err != nil {
		return fmt.Errorf("remove categories: %w", err)
	}
	return nil
}

func (s *CategoryService) List(ctx context.Context) ([]storage.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Subscribe(ctx context.Context) (*storage.Subscription[storage.Category], error) {
	return s.categories.SubscribeAll(ctx)
}
