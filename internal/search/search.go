// Package search is the synchronous query path: embed the query, run a
// similarity search against the store, return ranked results.
package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"spec-search/internal/models"
)

// Embedder vectorizes query text. Satisfied by embedding.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the retrieval surface of the content store. Satisfied by
// db.Store and memstore.Store.
type Store interface {
	Search(ctx context.Context, embedding []float32, filter models.SearchFilter) ([]models.SearchResult, error)
	GetSection(ctx context.Context, sectionID string, part int) ([]models.SearchResult, error)
	ListSections(ctx context.Context, part int) ([]models.SectionRef, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type Service struct {
	store    Store
	embedder Embedder
}

func NewService(store Store, embedder Embedder) *Service {
	return &Service{store: store, embedder: embedder}
}

// Search embeds the query and returns the top matches. The two outbound
// calls run sequentially; either failure fails the whole request.
func (s *Service) Search(ctx context.Context, query string, filter models.SearchFilter) ([]models.SearchResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.store.Search(ctx, embedding, filter)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	log.Debug().Str("query", query).Int("results", len(results)).Msg("search done")
	return results, nil
}

// GetSection returns all chunks under a section id prefix.
func (s *Service) GetSection(ctx context.Context, sectionID string, part int) ([]models.SearchResult, error) {
	return s.store.GetSection(ctx, sectionID, part)
}

// ListSections returns the distinct section catalogue.
func (s *Service) ListSections(ctx context.Context, part int) ([]models.SectionRef, error) {
	return s.store.ListSections(ctx, part)
}

// Stats returns store-wide chunk counts.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.Stats(ctx)
}
