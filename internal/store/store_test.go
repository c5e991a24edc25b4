package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAnalysis_InsertThenRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.UpsertAnalysis(ctx, "content-1", Analysis{
		Kind:         KindComments,
		Markdown:     "## report",
		CommentCount: 42,
		Source:       "provider",
		Model:        "model-a",
	})
	if err != nil {
		t.Fatalf("UpsertAnalysis() error = %v", err)
	}

	if stored.ID == "" {
		t.Error("stored.ID should be minted on insert")
	}
	if stored.Markdown != "## report" {
		t.Errorf("Markdown = %q, want %q", stored.Markdown, "## report")
	}
	if want := EstimateTokens("## report"); stored.TokensUsed != want {
		t.Errorf("TokensUsed = %d, want %d", stored.TokensUsed, want)
	}

	read, err := s.ReadAnalysis(ctx, "content-1", KindComments)
	if err != nil {
		t.Fatalf("ReadAnalysis() error = %v", err)
	}
	if read.ID != stored.ID {
		t.Errorf("read.ID = %q, want %q", read.ID, stored.ID)
	}
}

func TestUpsertAnalysis_LastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindComments, Markdown: "first version"})
	if err != nil {
		t.Fatalf("first UpsertAnalysis() error = %v", err)
	}

	second, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindComments, Markdown: "second version", CommentCount: 9})
	if err != nil {
		t.Fatalf("second UpsertAnalysis() error = %v", err)
	}

	if second.Markdown != "second version" {
		t.Errorf("Markdown = %q, want the second artifact", second.Markdown)
	}
	if second.CommentCount != 9 {
		t.Errorf("CommentCount = %d, want 9", second.CommentCount)
	}
	if second.ID != first.ID {
		t.Errorf("row id changed on overwrite: %q -> %q", first.ID, second.ID)
	}

	// Exactly one row for the key.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM analyses WHERE content_id = ?`, "content-1").Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestUpsertAnalysis_KindsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindComments, Markdown: "comments report"}); err != nil {
		t.Fatalf("UpsertAnalysis(comments) error = %v", err)
	}
	if _, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindAudience, Markdown: "audience report"}); err != nil {
		t.Fatalf("UpsertAnalysis(audience) error = %v", err)
	}

	comments, err := s.ReadAnalysis(ctx, "content-1", KindComments)
	if err != nil {
		t.Fatalf("ReadAnalysis(comments) error = %v", err)
	}
	if comments.Markdown != "comments report" {
		t.Errorf("comments row clobbered by audience upsert: %q", comments.Markdown)
	}
}

func TestUpsertAnalysis_TokensDerivedFromStoredText(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindComments, Markdown: "a long first report body"}); err != nil {
		t.Fatalf("UpsertAnalysis() error = %v", err)
	}

	short, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindComments, Markdown: "tiny"})
	if err != nil {
		t.Fatalf("UpsertAnalysis() error = %v", err)
	}

	if want := EstimateTokens("tiny"); short.TokensUsed != want {
		t.Errorf("TokensUsed = %d, want %d (derived from the overwriting artifact)", short.TokensUsed, want)
	}
}

func TestUpsertAnalysis_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertAnalysis(ctx, "", Analysis{Kind: KindComments}); err == nil {
		t.Error("UpsertAnalysis with empty content id should fail")
	}
	if _, err := s.UpsertAnalysis(ctx, "content-1", Analysis{}); err == nil {
		t.Error("UpsertAnalysis with empty kind should fail")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 3},           // 2 runes * 1.5
		{"abc", 5},          // ceil(4.5)
		{"你好", 3},           // CJK counted as runes, not bytes
		{"hello world", 17}, // ceil(11 * 1.5)
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestReadCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry, err := s.ReadCache(ctx, "missing", KindComments)
	if err != nil {
		t.Fatalf("ReadCache() error = %v", err)
	}
	if entry != nil {
		t.Errorf("ReadCache(missing) = %+v, want nil", entry)
	}

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if _, err := s.UpsertAnalysis(ctx, "content-1", Analysis{Kind: KindComments, Markdown: "cached report"}); err != nil {
		t.Fatalf("UpsertAnalysis() error = %v", err)
	}

	entry, err = s.ReadCache(ctx, "content-1", KindComments)
	if err != nil {
		t.Fatalf("ReadCache() error = %v", err)
	}
	if entry == nil {
		t.Fatal("ReadCache() = nil, want entry")
	}
	if !entry.CachedAt.Equal(fixed) {
		t.Errorf("CachedAt = %v, want %v", entry.CachedAt, fixed)
	}
	if entry.Payload.Markdown != "cached report" {
		t.Errorf("Payload.Markdown = %q, want %q", entry.Payload.Markdown, "cached report")
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cachedAt time.Time
		window   time.Duration
		want     bool
	}{
		{"just written", now.Add(-time.Minute), DefaultCacheWindow, true},
		{"six days old", now.Add(-6 * 24 * time.Hour), DefaultCacheWindow, true},
		{"exactly at window", now.Add(-DefaultCacheWindow), DefaultCacheWindow, false},
		{"eight days old", now.Add(-8 * 24 * time.Hour), DefaultCacheWindow, false},
		{"zero time", time.Time{}, DefaultCacheWindow, false},
		{"zero window", now.Add(-time.Minute), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFresh(tt.cachedAt, now, tt.window); got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheEntry_Fresh(t *testing.T) {
	now := time.Now()

	var nilEntry *CacheEntry
	if nilEntry.Fresh(now, DefaultCacheWindow) {
		t.Error("nil entry must never be fresh")
	}

	entry := &CacheEntry{CachedAt: now.Add(-time.Hour)}
	if !entry.Fresh(now, DefaultCacheWindow) {
		t.Error("hour-old entry should be fresh within the default window")
	}
}
