// Package scheduler promotes scheduled sessions into running slots within the
// global and per-launcher concurrency budgets.
package scheduler

import (
	"context"
	"fmt"

	"github.com/viant/wtr/runtime/session"
	"github.com/viant/wtr/service/store"
)

// Config represents scheduler configuration.
type Config struct {
	// Concurrency is the global number of sessions that may hold a slot.
	Concurrency int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{Concurrency: 1}
}

// Service promotes SCHEDULED sessions in creation order across launchers.
type Service struct {
	config Config
	store  *store.Store
}

// New creates a scheduler over the store.
func New(aStore *store.Store, config Config) *Service {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Service{config: config, store: aStore}
}

// Concurrency returns the global budget.
func (s *Service) Concurrency() int {
	return s.config.Concurrency
}

// Tick performs one scheduling pass and returns the promoted sessions in
// promotion order. The scan stops once the global budget is exhausted and
// skips sessions whose launcher is full.
func (s *Service) Tick(ctx context.Context) ([]*session.Session, error) {
	scheduled := s.store.List(&store.Filter{Statuses: []session.Status{session.StatusScheduled}})
	var promoted []*session.Session
	for _, candidate := range scheduled {
		if err := ctx.Err(); err != nil {
			return promoted, err
		}
		if s.store.ActiveGlobal() >= s.config.Concurrency {
			break
		}
		if s.store.Active(candidate.LauncherID) >= s.store.Limit(candidate.LauncherID) {
			continue
		}
		ok, err := s.store.Promote(candidate.ID, s.config.Concurrency)
		if err != nil {
			return promoted, fmt.Errorf("failed to promote session %v: %w", candidate.ID, err)
		}
		if !ok {
			continue
		}
		if current, found := s.store.Get(candidate.ID); found {
			promoted = append(promoted, current)
		}
	}
	return promoted, nil
}
