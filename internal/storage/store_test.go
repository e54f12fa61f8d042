package storage

import (
	"context"
	"testing"
)

func TestAppendGeneralAssignsIncreasingIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var last int64
	for _, content := range []string{"one", "two", "three"} {
		id, err := store.AppendGeneral(ctx, content, "alice")
		if err != nil {
			t.Fatalf("AppendGeneral: %v", err)
		}
		if id <= last {
			t.Fatalf("expected id > %d, got %d", last, id)
		}
		last = id
	}
}

func TestGeneralSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		id, err := store.AppendGeneral(ctx, content, "bob")
		if err != nil {
			t.Fatalf("AppendGeneral: %v", err)
		}
		ids = append(ids, id)
	}

	messages, err := store.GeneralSince(ctx, ids[1], 30)
	if err != nil {
		t.Fatalf("GeneralSince: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if msg.ID <= ids[1] {
			t.Fatalf("message %d has id %d <= offset %d", i, msg.ID, ids[1])
		}
		if i > 0 && messages[i-1].ID >= msg.ID {
			t.Fatalf("replay not oldest-first: %d before %d", messages[i-1].ID, msg.ID)
		}
	}
	if messages[0].Content != "c" || messages[2].Content != "e" {
		t.Fatalf("unexpected replay contents: %+v", messages)
	}
}

func TestGeneralSinceHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := store.AppendGeneral(ctx, "msg", "carol"); err != nil {
			t.Fatalf("AppendGeneral: %v", err)
		}
	}
	messages, err := store.GeneralSince(ctx, 0, 4)
	if err != nil {
		t.Fatalf("GeneralSince: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	// The window keeps the newest rows above the offset.
	if messages[0].ID != 7 || messages[3].ID != 10 {
		t.Fatalf("expected ids 7..10, got %d..%d", messages[0].ID, messages[3].ID)
	}
}

func TestGeneralRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := store.AppendGeneral(ctx, "msg", "dave"); err != nil {
			t.Fatalf("AppendGeneral: %v", err)
		}
	}
	messages, err := store.GeneralRecent(ctx, DefaultRecentLimit)
	if err != nil {
		t.Fatalf("GeneralRecent: %v", err)
	}
	if len(messages) != DefaultRecentLimit {
		t.Fatalf("expected %d messages, got %d", DefaultRecentLimit, len(messages))
	}
	if messages[0].ID != 7 || messages[len(messages)-1].ID != 25 {
		t.Fatalf("expected ids 7..25, got %d..%d", messages[0].ID, messages[len(messages)-1].ID)
	}
}

func TestPrivateHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := "alice-bob"
	if _, err := store.AppendPrivate(ctx, "hey", "bob", "alice", room); err != nil {
		t.Fatalf("AppendPrivate: %v", err)
	}
	if _, err := store.AppendPrivate(ctx, "hi", "alice", "bob", room); err != nil {
		t.Fatalf("AppendPrivate: %v", err)
	}
	if _, err := store.AppendPrivate(ctx, "elsewhere", "carol", "dave", "carol-dave"); err != nil {
		t.Fatalf("AppendPrivate: %v", err)
	}

	history, err := store.PrivateHistory(ctx, room, DefaultHistoryLimit)
	if err != nil {
		t.Fatalf("PrivateHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Sender != "bob" || history[0].Receiver != "alice" || history[0].Content != "hey" {
		t.Fatalf("unexpected first message: %+v", history[0])
	}
	if history[1].Sender != "alice" {
		t.Fatalf("history not in append order: %+v", history)
	}
	if history[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be populated")
	}
}

func TestPrivateHistoryEmptyRoom(t *testing.T) {
	store := newTestStore(t)

	history, err := store.PrivateHistory(context.Background(), "nobody-here", 0)
	if err != nil {
		t.Fatalf("PrivateHistory: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(history))
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}
