package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"spec-search/internal/config"
	"spec-search/internal/models"
)

// Chunk is the single persisted table. Chunks are append-only: the
// ingestion pipeline inserts them in batches and the only delete path is
// a full-table truncation before a re-ingest.
type Chunk struct {
	bun.BaseModel `bun:"table:spec_chunks,alias:c"`
	ID            int64            `bun:"id,pk,autoincrement"`
	PartNumber    int              `bun:"part_number,notnull"`
	SectionID     *string          `bun:"section_id"`
	Title         *string          `bun:"title"`
	Content       string           `bun:"content,notnull"`
	ContentType   string           `bun:"content_type,notnull"`
	PageNumber    *int             `bun:"page_number"`
	Embedding     *pgvector.Vector `bun:"embedding"`
	CreatedAt     time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type searchRow struct {
	Chunk
	Score float64 `bun:"score,scanonly"`
}

// Store wraps a bun connection to Postgres with pgvector installed.
type Store struct {
	db         *bun.DB
	dimensions int
}

func Connect(cfg *config.DatabaseConfig) *sql.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...))
}

func NewStore(sqldb *sql.DB, cfg *config.DatabaseConfig, dimensions int) *Store {
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db, dimensions: dimensions}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the table, the cosine vector index and the filter/prefix
// indexes. The vector column width is the configured provider
// dimensionality, fixed per deployment.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS spec_chunks (
			id BIGSERIAL PRIMARY KEY,
			part_number INTEGER NOT NULL,
			section_id TEXT,
			title TEXT,
			content TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'text',
			page_number INTEGER,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_spec_chunks_part ON spec_chunks (part_number)`,
		`CREATE INDEX IF NOT EXISTS idx_spec_chunks_section ON spec_chunks (section_id text_pattern_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_spec_chunks_embedding ON spec_chunks
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Truncate empties the whole table. Required before re-ingesting, and
// before switching providers or dimensionality.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE TABLE spec_chunks RESTART IDENTITY`)
	return err
}

const insertBatchSize = 500

// InsertChunks appends chunks in batches. Every non-empty embedding must
// match the configured dimensionality; mixing vector widths in one table
// would silently poison similarity search.
func (s *Store) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	rows := make([]Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) > 0 && len(chunk.Embedding) != s.dimensions {
			return fmt.Errorf("chunk %d: embedding has %d dimensions, store expects %d",
				i, len(chunk.Embedding), s.dimensions)
		}
		rows = append(rows, toRow(chunk))
	}

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		if _, err := s.db.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("insert chunks %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Search returns the chunks nearest to the query embedding by cosine
// distance, scored as 1 - distance. Chunks without an embedding never
// participate; filters AND together. Ties break by storage order.
func (s *Store) Search(ctx context.Context, embedding []float32, filter models.SearchFilter) ([]models.SearchResult, error) {
	vec := pgvector.NewVector(embedding)
	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}

	var rows []searchRow
	q := s.db.NewSelect().Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("1 - (c.embedding <=> ?) AS score", vec).
		Where("c.embedding IS NOT NULL")
	if filter.Part != 0 {
		q = q.Where("c.part_number = ?", filter.Part)
	}
	if filter.ContentType != "" {
		q = q.Where("c.content_type = ?", filter.ContentType)
	}
	if err := q.OrderExpr("c.embedding <=> ?", vec).Limit(limit).Scan(ctx); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, len(rows))
	for i, row := range rows {
		results[i] = rowToResult(row.Chunk, row.Score)
	}
	return results, nil
}

// GetSection returns all chunks whose section id starts with the given
// id, ordered by (section_id, id). No similarity involved, so chunks
// without embeddings are included too.
func (s *Store) GetSection(ctx context.Context, sectionID string, part int) ([]models.SearchResult, error) {
	var rows []Chunk
	q := s.db.NewSelect().Model(&rows).
		Where("c.section_id LIKE ?", sectionID+"%")
	if part != 0 {
		q = q.Where("c.part_number = ?", part)
	}
	if err := q.OrderExpr("c.section_id ASC, c.id ASC").Scan(ctx); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, len(rows))
	for i, row := range rows {
		results[i] = rowToResult(row, 0)
	}
	return results, nil
}

// ListSections returns the distinct (sectionId, title, partNumber)
// triples with both fields present.
func (s *Store) ListSections(ctx context.Context, part int) ([]models.SectionRef, error) {
	var refs []models.SectionRef
	q := s.db.NewSelect().TableExpr("spec_chunks AS c").
		ColumnExpr("DISTINCT c.section_id AS section_id, c.title AS title, c.part_number AS part_number").
		Where("c.section_id IS NOT NULL").
		Where("c.title IS NOT NULL")
	if part != 0 {
		q = q.Where("c.part_number = ?", part)
	}
	if err := q.OrderExpr("c.part_number ASC, c.section_id ASC").Scan(ctx, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// Stats returns total, per-part and embedded row counts.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{ByPart: make(map[int]int)}

	total, err := s.db.NewSelect().Model((*Chunk)(nil)).Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.Total = total

	var parts []struct {
		PartNumber int `bun:"part_number"`
		Count      int `bun:"count"`
	}
	err = s.db.NewSelect().TableExpr("spec_chunks AS c").
		ColumnExpr("c.part_number AS part_number, count(*) AS count").
		GroupExpr("c.part_number").
		OrderExpr("c.part_number ASC").
		Scan(ctx, &parts)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		stats.ByPart[p.PartNumber] = p.Count
	}

	embedded, err := s.db.NewSelect().Model((*Chunk)(nil)).
		Where("c.embedding IS NOT NULL").Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.Embedded = embedded

	return stats, nil
}

func toRow(chunk models.Chunk) Chunk {
	row := Chunk{
		PartNumber:  chunk.PartNumber,
		Content:     chunk.Content,
		ContentType: chunk.ContentType,
	}
	if row.ContentType == "" {
		row.ContentType = models.ContentTypeText
	}
	if chunk.SectionID != "" {
		sectionID := chunk.SectionID
		row.SectionID = &sectionID
	}
	if chunk.Title != "" {
		title := chunk.Title
		row.Title = &title
	}
	if chunk.PageNumber != 0 {
		page := chunk.PageNumber
		row.PageNumber = &page
	}
	if len(chunk.Embedding) > 0 {
		vec := pgvector.NewVector(chunk.Embedding)
		row.Embedding = &vec
	}
	return row
}

func rowToResult(row Chunk, score float64) models.SearchResult {
	result := models.SearchResult{
		ID:          row.ID,
		PartNumber:  row.PartNumber,
		Content:     row.Content,
		ContentType: row.ContentType,
		Score:       score,
		CreatedAt:   row.CreatedAt,
	}
	if row.SectionID != nil {
		result.SectionID = *row.SectionID
	}
	if row.Title != nil {
		result.Title = *row.Title
	}
	if row.PageNumber != nil {
		result.PageNumber = *row.PageNumber
	}
	return result
}
