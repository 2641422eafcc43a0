package registry

import (
	"testing"

	"github.com/five82/synq/internal/store"
)

type record struct {
	ID string `json:"id"`
}

type statusStore struct {
	*store.Container[record]
	resets int
}

func (s *statusStore) ResetStatus() { s.resets++ }

func TestClearAll_EmptiesEveryStore(t *testing.T) {
	reg := New()
	plain := store.New(store.Collection([]record{{ID: "1"}}))
	synced := &statusStore{Container: store.New(store.Collection([]record{{ID: "2"}, {ID: "3"}}))}
	single := store.New(store.Single(record{ID: "4"}))

	reg.Add(plain)
	reg.Add(synced)
	reg.Add(single)
	if reg.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reg.Len())
	}

	reg.ClearAll()

	for name, snap := range map[string]*store.Snapshot[record]{
		"plain":  plain.Snapshot(),
		"synced": synced.Snapshot(),
	} {
		if !snap.IsCollection() || snap.Len() != 0 {
			t.Fatalf("%s snapshot = %#v, want empty collection", name, snap)
		}
	}
	if !single.Snapshot().IsAbsent() {
		t.Fatalf("single snapshot = %#v, want absent", single.Snapshot())
	}
	if synced.resets != 1 {
		t.Fatalf("ResetStatus called %d times, want 1", synced.resets)
	}
}

func TestEmpty_OnlyRegistered(t *testing.T) {
	reg := New()
	registered := store.New(store.Collection([]record{{ID: "1"}}))
	stranger := store.New(store.Collection([]record{{ID: "2"}}))
	reg.Add(registered)

	calls := 0
	registered.Subscribe(func(*store.Snapshot[record]) { calls++ })

	if !reg.Empty(registered) {
		t.Fatal("Empty(registered) = false, want true")
	}
	if calls != 1 {
		t.Fatalf("listener called %d times, want 1", calls)
	}
	if reg.Empty(stranger) {
		t.Fatal("Empty(stranger) = true, want false")
	}
	if stranger.Snapshot().Len() != 1 {
		t.Fatal("unregistered store was cleared")
	}
}

func TestAdd_IgnoresNil(t *testing.T) {
	reg := New()
	reg.Add(nil)
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", reg.Len())
	}
}
