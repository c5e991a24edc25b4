package store

import (
	"context"
	"testing"

	"github.com/lumeng-dev/clipinsight/internal/content"
)

func TestReplaceCommentsSwapsSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []content.RawComment{
		{ID: "c1", Text: "great video", AuthorName: "a", DiggCount: 3, IPLabel: "Shanghai"},
		{ID: "c2", Text: "nice", AuthorName: "b", DiggCount: 10, IPLabel: "Beijing"},
	}
	if err := s.ReplaceComments(ctx, "content-1", first); err != nil {
		t.Fatalf("ReplaceComments() error = %v", err)
	}

	second := []content.RawComment{
		{ID: "c3", Text: "new set", AuthorName: "c", DiggCount: 1},
	}
	if err := s.ReplaceComments(ctx, "content-1", second); err != nil {
		t.Fatalf("ReplaceComments() second call error = %v", err)
	}

	got, err := s.ListComments(ctx, "content-1")
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListComments() returned %d comments, want 1", len(got))
	}
	if got[0].ID != "c3" {
		t.Errorf("comment ID = %q, want %q", got[0].ID, "c3")
	}
}

func TestListCommentsOrdersByDiggCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	comments := []content.RawComment{
		{ID: "low", Text: "ok", DiggCount: 1},
		{ID: "high", Text: "top comment", DiggCount: 50},
		{ID: "mid", Text: "middling", DiggCount: 7},
	}
	if err := s.ReplaceComments(ctx, "content-2", comments); err != nil {
		t.Fatalf("ReplaceComments() error = %v", err)
	}

	got, err := s.ListComments(ctx, "content-2")
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}

	wantOrder := []string{"high", "mid", "low"}
	if len(got) != len(wantOrder) {
		t.Fatalf("ListComments() returned %d comments, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("comment[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestListCommentsEmptyForUnknownContent(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ListComments(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListComments() returned %d comments, want 0", len(got))
	}
}
