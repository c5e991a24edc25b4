package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumeng-dev/clipinsight/internal/content"
)

// ReplaceComments swaps the stored comment set for contentID with the
// given comments. The comment pipeline calls this after collection so
// later runs (audience analysis) can read from the database instead of
// re-paginating the provider.
func (s *Store) ReplaceComments(ctx context.Context, contentID string, comments []content.RawComment) error {
	if contentID == "" {
		return errors.New("store: content id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE content_id = ?`, contentID); err != nil {
		return fmt.Errorf("failed to clear comments: %w", err)
	}

	now := s.now().UTC()
	for _, c := range comments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO comments (content_id, comment_id, text, author_name, digg_count, ip_label, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (content_id, comment_id) DO UPDATE SET
				text = excluded.text,
				author_name = excluded.author_name,
				digg_count = excluded.digg_count,
				ip_label = excluded.ip_label,
				collected_at = excluded.collected_at`,
			contentID, c.ID, c.Text, c.AuthorName, c.DiggCount, c.IPLabel, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert comment %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comments: %w", err)
	}

	s.logger.Debug("comments replaced", "content_id", contentID, "count", len(comments))
	return nil
}

// ListComments returns the stored comments for contentID in collection
// order (highest digg count first, stable by comment id).
func (s *Store) ListComments(ctx context.Context, contentID string) ([]content.RawComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id, text, author_name, digg_count, ip_label
		FROM comments WHERE content_id = ?
		ORDER BY digg_count DESC, comment_id ASC`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []content.RawComment
	for rows.Next() {
		var c content.RawComment
		if err := rows.Scan(&c.ID, &c.Text, &c.AuthorName, &c.DiggCount, &c.IPLabel); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}
