package memory

import (
	"context"
	"testing"

	"nrsnotify/internal/core"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := core.WatermarkKey{Type: 2, Subtype: 1}

	if err := s.Save(ctx, "a", core.Watermarks{key: 10}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "a")
	if err != nil || got[key] != 10 {
		t.Fatalf("unexpected load: %v (err=%v)", got, err)
	}

	// Mutating the returned map must not touch the store.
	got[key] = 99
	again, _ := s.Load(ctx, "a")
	if again[key] != 10 {
		t.Fatalf("store mutated through returned map: %d", again[key])
	}

	empty, err := s.Load(ctx, "b")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty for unknown account: %v (err=%v)", empty, err)
	}
}
