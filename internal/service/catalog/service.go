// Package catalog assembles the read views of the agent catalog: the explore
// listing, the featured strip, agent detail, and the creator dashboard.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	core "github.com/vitrina-labs/vitrina/internal/catalog"
	"github.com/vitrina-labs/vitrina/internal/model"
)

// maxFeaturedLimit caps the featured strip regardless of configuration.
const maxFeaturedLimit = 6

// Store is the storage surface the catalog service depends on.
type Store interface {
	ListPublishedAgents(ctx context.Context, pattern string, limit int) ([]model.CatalogAgent, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListAgentsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.CatalogAgent, error)
	ListExecutionsByUser(ctx context.Context, userID uuid.UUID) ([]model.AgentExecution, error)
	ListCollectionsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Collection, error)
	GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error)
	GetAgentDetail(ctx context.Context, id uuid.UUID) (model.AgentDetail, error)
}

// ExploreView is the response shape of the explore listing.
type ExploreView struct {
	Agents     []model.CatalogAgent `json:"agents"`
	Categories []model.Category     `json:"categories"`
}

// DashboardView is the response shape of the creator dashboard.
type DashboardView struct {
	Profile     model.Profile        `json:"profile"`
	Agents      []model.CatalogAgent `json:"agents"`
	Metrics     core.Metrics         `json:"metrics"`
	Collections []model.Collection   `json:"collections"`
}

// Service assembles catalog views from the store.
type Service struct {
	store         Store
	featuredLimit int
}

// NewService creates a catalog service. featuredLimit is clamped to
// [1, maxFeaturedLimit].
func NewService(store Store, featuredLimit int) *Service {
	if featuredLimit <= 0 || featuredLimit > maxFeaturedLimit {
		featuredLimit = maxFeaturedLimit
	}
	return &Service{store: store, featuredLimit: featuredLimit}
}

// Explore returns published agents matching the search query, narrowed by the
// category filters, together with the full category list. Agents and
// categories are fetched concurrently; either failure fails the whole view.
func (s *Service) Explore(ctx context.Context, q, selectedCategory, categoryType string) (ExploreView, error) {
	pattern := core.SearchPattern(q)

	var (
		agents     []model.CatalogAgent
		categories []model.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agents, err = s.store.ListPublishedAgents(gctx, pattern, 0)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ExploreView{}, fmt.Errorf("catalog: explore: %w", err)
	}

	return ExploreView{
		Agents:     withBadges(core.FilterAgents(agents, categories, selectedCategory, categoryType)),
		Categories: categories,
	}, nil
}

// withBadges fills in the tag badge projection on each catalog card.
func withBadges(agents []model.CatalogAgent) []model.CatalogAgent {
	for i := range agents {
		agents[i].Badges = core.TagBadges(agents[i].Tags)
	}
	return agents
}

// Featured returns the newest published agents for the home view.
func (s *Service) Featured(ctx context.Context) ([]model.CatalogAgent, error) {
	agents, err := s.store.ListPublishedAgents(ctx, "", s.featuredLimit)
	if err != nil {
		return nil, fmt.Errorf("catalog: featured: %w", err)
	}
	return withBadges(agents), nil
}

// Detail returns the full agent view for the detail page.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (model.AgentDetail, error) {
	detail, err := s.store.GetAgentDetail(ctx, id)
	if err != nil {
		return model.AgentDetail{}, fmt.Errorf("catalog: detail: %w", err)
	}
	return detail, nil
}

// Categories returns the full category list.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: categories: %w", err)
	}
	return categories, nil
}

// Dashboard returns the caller's profile, agents, collections, and aggregated
// execution metrics. Metrics cover executions the caller ran, which may be
// other creators' agents. The four fetches are independent and run
// concurrently.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (DashboardView, error) {
	var (
		profile     model.Profile
		agents      []model.CatalogAgent
		execs       []model.AgentExecution
		collections []model.Collection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.store.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		agents, err = s.store.ListAgentsByCreator(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		execs, err = s.store.ListExecutionsByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		collections, err = s.store.ListCollectionsByCreator(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, fmt.Errorf("catalog: dashboard: %w", err)
	}

	return DashboardView{
		Profile:     profile,
		Agents:      withBadges(agents),
		Metrics:     core.Aggregate(execs),
		Collections: collections,
	}, nil
}
