package event

import (
	"sync"
	"testing"

	"github.com/lumeng-dev/clipinsight/internal/content"
)

func contentVideoInfo() content.VideoInfo {
	return content.VideoInfo{VideoID: "v-1", Title: "demo", Author: "tester"}
}

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()

	called := false
	id := bus.Subscribe(TypeProgress, func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus()

	var received Event
	bus.Subscribe(TypeProgress, func(e Event) {
		received = e
	})

	bus.Publish(NewProgress("fetch-comments", StatusActive, 3, 6, 50, "", "Collect comments", "Fetching comment pages"))

	if received == nil {
		t.Fatal("Handler should have received the event")
	}
	if received.EventType() != TypeProgress {
		t.Errorf("EventType() = %q, want %q", received.EventType(), TypeProgress)
	}

	progress, ok := received.(Progress)
	if !ok {
		t.Fatalf("received event is %T, want Progress", received)
	}
	if progress.Step != "fetch-comments" {
		t.Errorf("Step = %q, want %q", progress.Step, "fetch-comments")
	}
	if progress.Percentage != 50 {
		t.Errorf("Percentage = %d, want 50", progress.Percentage)
	}
}

func TestBus_PublishOrdering(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(TypePartial, func(e Event) {
		order = append(order, "specific")
	})
	bus.SubscribeAll(func(e Event) {
		order = append(order, "wildcard")
	})

	bus.Publish(NewPartial("analysis", "Hello"))

	if len(order) != 2 {
		t.Fatalf("expected 2 handler calls, got %d", len(order))
	}
	if order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("handler order = %v, want [specific wildcard]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe(TypeError, func(e Event) {
		calls++
	})

	bus.Publish(NewError(KindStep, "fetch failed", "fetch-detail"))

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true for a known ID")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return false for an already-removed ID")
	}

	bus.Publish(NewError(KindStep, "fetch failed", "fetch-detail"))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestBus_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe(TypeDone, func(e Event) {
		panic("boom")
	})
	bus.Subscribe(TypeDone, func(e Event) {
		delivered = true
	})

	bus.Publish(NewDone(Done{ResultID: "r-1"}))

	if !delivered {
		t.Error("second handler should run even when the first panics")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewPartial("analysis", "x"))
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Errorf("handler called %d times, want 10", count)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		event Event
		want  bool
	}{
		{NewProgress("save-result", StatusCompleted, 5, 6, 100, "", "", ""), false},
		{NewInfo(contentVideoInfo(), nil), false},
		{NewPartial("analysis", "delta"), false},
		{NewDone(Done{ResultID: "r-1"}), true},
		{NewError(KindAborted, "cancelled", ""), true},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.event); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.event.EventType(), got, tt.want)
		}
	}
}
