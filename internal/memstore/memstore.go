// Package memstore is an in-memory alternative to the Postgres store,
// backed by chromem-go. It serves local development (serve --memory) and
// tests; nothing persists across restarts.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"spec-search/internal/models"
)

const collectionName = "spec_chunks"

type Store struct {
	collection *chromem.Collection

	mu     sync.RWMutex
	chunks map[int64]models.Chunk
	order  []int64
	nextID int64
}

func New() (*Store, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return &Store{collection: collection, chunks: make(map[int64]models.Chunk)}, nil
}

func (s *Store) Close() error { return nil }

// InsertChunks appends chunks; embedded ones also go into the chromem
// collection for similarity queries.
func (s *Store) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		s.nextID++
		id := s.nextID
		if chunk.ContentType == "" {
			chunk.ContentType = models.ContentTypeText
		}
		s.chunks[id] = chunk
		s.order = append(s.order, id)

		if len(chunk.Embedding) == 0 {
			continue
		}
		doc := chromem.Document{
			ID:      strconv.FormatInt(id, 10),
			Content: chunk.Content,
			Metadata: map[string]string{
				"part":        strconv.Itoa(chunk.PartNumber),
				"contentType": chunk.ContentType,
			},
			Embedding: chunk.Embedding,
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("adding document: %w", err)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, filter models.SearchFilter) ([]models.SearchResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}

	where := map[string]string{}
	if filter.Part != 0 {
		where["part"] = strconv.Itoa(filter.Part)
	}
	if filter.ContentType != "" {
		where["contentType"] = filter.ContentType
	}

	// chromem rejects nResults larger than the matching document count,
	// so clamp against our own index first.
	s.mu.RLock()
	matching := 0
	for _, id := range s.order {
		chunk := s.chunks[id]
		if len(chunk.Embedding) == 0 {
			continue
		}
		if filter.Part != 0 && chunk.PartNumber != filter.Part {
			continue
		}
		if filter.ContentType != "" && chunk.ContentType != filter.ContentType {
			continue
		}
		matching++
	}
	s.mu.RUnlock()

	if matching == 0 {
		return []models.SearchResult{}, nil
	}
	if limit > matching {
		limit = matching
	}

	hits, err := s.collection.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		chunk, ok := s.chunks[id]
		if !ok {
			continue
		}
		results = append(results, toResult(id, chunk, float64(hit.Similarity)))
	}
	return results, nil
}

func (s *Store) GetSection(ctx context.Context, sectionID string, part int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []models.SearchResult
	for _, id := range s.order {
		chunk := s.chunks[id]
		if chunk.SectionID == "" || !strings.HasPrefix(chunk.SectionID, sectionID) {
			continue
		}
		if part != 0 && chunk.PartNumber != part {
			continue
		}
		results = append(results, toResult(id, chunk, 0))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].SectionID != results[j].SectionID {
			return results[i].SectionID < results[j].SectionID
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func (s *Store) ListSections(ctx context.Context, part int) ([]models.SectionRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var refs []models.SectionRef
	for _, id := range s.order {
		chunk := s.chunks[id]
		if chunk.SectionID == "" || chunk.Title == "" {
			continue
		}
		if part != 0 && chunk.PartNumber != part {
			continue
		}
		key := fmt.Sprintf("%d|%s|%s", chunk.PartNumber, chunk.SectionID, chunk.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, models.SectionRef{
			SectionID:  chunk.SectionID,
			Title:      chunk.Title,
			PartNumber: chunk.PartNumber,
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].PartNumber != refs[j].PartNumber {
			return refs[i].PartNumber < refs[j].PartNumber
		}
		return refs[i].SectionID < refs[j].SectionID
	})
	return refs, nil
}

func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{ByPart: make(map[int]int)}
	for _, chunk := range s.chunks {
		stats.Total++
		stats.ByPart[chunk.PartNumber]++
		if len(chunk.Embedding) > 0 {
			stats.Embedded++
		}
	}
	return stats, nil
}

func toResult(id int64, chunk models.Chunk, score float64) models.SearchResult {
	return models.SearchResult{
		ID:          id,
		PartNumber:  chunk.PartNumber,
		SectionID:   chunk.SectionID,
		Title:       chunk.Title,
		Content:     chunk.Content,
		ContentType: chunk.ContentType,
		PageNumber:  chunk.PageNumber,
		Score:       score,
	}
}
