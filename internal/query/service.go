package query

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// Service answers owner-scoped run queries from a store.
type Service struct {
	store core.RunStore
}

// NewService creates a query service over store.
func NewService(store core.RunStore) *Service {
	return &Service{store: store}
}

// Query returns the owner's runs matching f. Each call reads a fresh view
// of the store.
func (s *Service) Query(ctx context.Context, owner string, f Filter) ([]*core.Run, error) {
	runs, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return Apply(runs, f), nil
}
