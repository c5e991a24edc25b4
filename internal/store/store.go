// Package store persists pipeline results in SQLite and serves the
// per-content analysis cache. Upserts are idempotent and keyed by
// (content id, analysis kind); re-running a pipeline for the same key
// overwrites the prior result (last-write-wins, no versioning).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lumeng-dev/clipinsight/internal/logging"
)

// Analysis kinds stored per content id.
const (
	KindComments = "comments"
	KindAudience = "audience"
	KindChat     = "chat"
)

// Analysis is the artifact a pipeline run hands to the store.
type Analysis struct {
	Kind         string
	Markdown     string
	CommentCount int
	Source       string
	Model        string
}

// StoredAnalysis is an Analysis as persisted, with store-owned fields.
// TokensUsed is always derived from the markdown actually stored so the
// row and the terminal event the caller sees never disagree.
type StoredAnalysis struct {
	ID           string
	ContentID    string
	Kind         string
	Markdown     string
	CommentCount int
	Source       string
	Model        string
	TokensUsed   int
	AnalyzedAt   time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT NOT NULL,
	content_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	markdown TEXT NOT NULL,
	comment_count INTEGER NOT NULL DEFAULT 0,
	source TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	tokens_used INTEGER NOT NULL DEFAULT 0,
	analyzed_at DATETIME NOT NULL,
	PRIMARY KEY (content_id, kind)
);

CREATE TABLE IF NOT EXISTS comments (
	content_id TEXT NOT NULL,
	comment_id TEXT NOT NULL,
	text TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	digg_count INTEGER NOT NULL DEFAULT 0,
	ip_label TEXT NOT NULL DEFAULT '',
	collected_at DATETIME NOT NULL,
	PRIMARY KEY (content_id, comment_id)
);
`

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store in tests.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.WithComponent("store"),
		now:    time.Now,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EstimateTokens approximates the token cost of text. CJK characters run
// roughly two tokens each and latin words about 1.3; chars * 1.5 is the
// coarse middle ground the product has always reported.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) * 1.5))
}

// UpsertAnalysis stores the artifact for (contentID, artifact.Kind),
// overwriting any previous row for the same key. The row id is minted on
// first insert and preserved across overwrites. Safe to call repeatedly.
func (s *Store) UpsertAnalysis(ctx context.Context, contentID string, artifact Analysis) (*StoredAnalysis, error) {
	if contentID == "" {
		return nil, errors.New("store: content id is required")
	}
	if artifact.Kind == "" {
		return nil, errors.New("store: analysis kind is required")
	}

	stored := &StoredAnalysis{
		ID:           uuid.NewString(),
		ContentID:    contentID,
		Kind:         artifact.Kind,
		Markdown:     artifact.Markdown,
		CommentCount: artifact.CommentCount,
		Source:       artifact.Source,
		Model:        artifact.Model,
		TokensUsed:   EstimateTokens(artifact.Markdown),
		AnalyzedAt:   s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, content_id, kind, markdown, comment_count, source, model, tokens_used, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_id, kind) DO UPDATE SET
			markdown = excluded.markdown,
			comment_count = excluded.comment_count,
			source = excluded.source,
			model = excluded.model,
			tokens_used = excluded.tokens_used,
			analyzed_at = excluded.analyzed_at`,
		stored.ID, stored.ContentID, stored.Kind, stored.Markdown, stored.CommentCount,
		stored.Source, stored.Model, stored.TokensUsed, stored.AnalyzedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert analysis: %w", err)
	}

	// On conflict the original id wins; read the row back so the caller
	// observes exactly what is stored.
	final, err := s.ReadAnalysis(ctx, contentID, artifact.Kind)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("analysis upserted",
		"content_id", contentID, "kind", artifact.Kind, "tokens", final.TokensUsed)
	return final, nil
}

// ReadAnalysis returns the stored analysis for (contentID, kind), or
// sql.ErrNoRows-wrapped error when none exists.
func (s *Store) ReadAnalysis(ctx context.Context, contentID, kind string) (*StoredAnalysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_id, kind, markdown, comment_count, source, model, tokens_used, analyzed_at
		FROM analyses WHERE content_id = ? AND kind = ?`, contentID, kind)

	var a StoredAnalysis
	err := row.Scan(&a.ID, &a.ContentID, &a.Kind, &a.Markdown, &a.CommentCount,
		&a.Source, &a.Model, &a.TokensUsed, &a.AnalyzedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}
	return &a, nil
}

// ReadCache returns the cache entry for (contentID, kind), or nil when no
// result has ever been stored. Freshness is the caller's concern via
// IsFresh; the store only reports what exists and when it was written.
func (s *Store) ReadCache(ctx context.Context, contentID, kind string) (*CacheEntry, error) {
	a, err := s.ReadAnalysis(ctx, contentID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &CacheEntry{Payload: a, CachedAt: a.AnalyzedAt}, nil
}
