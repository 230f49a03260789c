package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"nrsnotify/internal/amqp"
	"nrsnotify/internal/core"
	"nrsnotify/internal/storage/memory"
)

type fakePruner struct {
	calls    int
	cutoff   time.Time
	err      error
	accounts []string
	listErr  error
}

func (f *fakePruner) Accounts(ctx context.Context) ([]string, error) {
	return f.accounts, f.listErr
}

func (f *fakePruner) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 3, f.err
}

type brokenStore struct{}

func (brokenStore) Load(ctx context.Context, account string) (core.Watermarks, error) {
	return nil, errors.New("database is locked")
}

func (brokenStore) Save(ctx context.Context, account string, w core.Watermarks) error {
	return nil
}

func TestHandleWatermarksMessage_MergesForward(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	payments := core.WatermarkKey{Type: 0, Subtype: 0}
	messages := core.WatermarkKey{Type: 1, Subtype: 0}
	_ = store.Save(ctx, "42", core.Watermarks{payments: 9000, messages: 100})

	w := NewWatermarkWorker(store, nil, 0)
	msg := &amqp.WatermarksUpdatedMessage{
		ID:         "m1",
		Account:    "42",
		Watermarks: map[string]core.Timestamp{"ts_0_0": 5000, "ts_1_0": 6000, "bogus": 1},
	}

	if err := w.HandleWatermarksMessage(ctx, msg); err != nil {
		t.Fatalf("HandleWatermarksMessage() error = %v", err)
	}

	got, _ := store.Load(ctx, "42")
	if got[payments] != 9000 {
		t.Errorf("payments watermark = %d, want 9000 (must not move back)", got[payments])
	}
	if got[messages] != 6000 {
		t.Errorf("messages watermark = %d, want 6000", got[messages])
	}
}

func TestHandleWatermarksMessage_Errors(t *testing.T) {
	msg := &amqp.WatermarksUpdatedMessage{ID: "m1", Account: "42", Watermarks: map[string]core.Timestamp{"ts_0_0": 1}}

	if err := NewWatermarkWorker(brokenStore{}, nil, 0).HandleWatermarksMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error when the store cannot load")
	}

	empty := &amqp.WatermarksUpdatedMessage{ID: "m2", Account: "42"}
	if err := NewWatermarkWorker(brokenStore{}, nil, 0).HandleWatermarksMessage(context.Background(), empty); err != nil {
		t.Fatalf("message without keys should be dropped, got %v", err)
	}
}

func TestPruneStale(t *testing.T) {
	tests := []struct {
		name      string
		pruner    *fakePruner
		retention time.Duration
		wantCalls int
		wantErr   bool
	}{
		{"disabled retention", &fakePruner{}, 0, 0, false},
		{"prunes", &fakePruner{}, time.Hour, 1, false},
		{"pruner error", &fakePruner{err: errors.New("disk I/O error")}, time.Hour, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWatermarkWorker(memory.New(), tt.pruner, tt.retention)
			err := w.PruneStale(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("PruneStale() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.pruner.calls != tt.wantCalls {
				t.Fatalf("pruner calls = %d, want %d", tt.pruner.calls, tt.wantCalls)
			}
			if tt.wantCalls > 0 && time.Since(tt.pruner.cutoff) < tt.retention {
				t.Errorf("cutoff %v is newer than retention", tt.pruner.cutoff)
			}
		})
	}
}

func TestMirroredAccounts(t *testing.T) {
	tests := []struct {
		name    string
		pruner  Pruner
		want    int
		wantErr bool
	}{
		{"no pruner", nil, 0, false},
		{"lists accounts", &fakePruner{accounts: []string{"42", "43"}}, 2, false},
		{"list error", &fakePruner{listErr: errors.New("database is locked")}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewWatermarkWorker(memory.New(), tt.pruner, time.Hour).MirroredAccounts(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("MirroredAccounts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MirroredAccounts() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPruneStale_ListErrorReported(t *testing.T) {
	w := NewWatermarkWorker(memory.New(), &fakePruner{listErr: errors.New("database is locked")}, time.Hour)
	if err := w.PruneStale(context.Background()); err == nil {
		t.Fatal("expected the account listing error after pruning")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	pruner := &fakePruner{}
	w := NewWatermarkWorker(memory.New(), pruner, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
	if pruner.calls < 1 {
		t.Error("expected startup prune")
	}
}
