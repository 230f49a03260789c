package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nrsnotify/internal/amqp"
	"nrsnotify/internal/core"
	"nrsnotify/internal/ports"
)

// Pruner removes mirrored watermarks that have not been touched since cutoff
// and lists the accounts still mirrored.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Accounts(ctx context.Context) ([]string, error)
}

// WatermarkWorker mirrors mark-as-read events into a watermark store
type WatermarkWorker struct {
	store     ports.WatermarkStore
	pruner    Pruner
	retention time.Duration
}

func NewWatermarkWorker(store ports.WatermarkStore, pruner Pruner, retention time.Duration) *WatermarkWorker {
	return &WatermarkWorker{
		store:     store,
		pruner:    pruner,
		retention: retention,
	}
}

// HandleWatermarksMessage merges the message into the stored watermarks.
// A watermark only moves forward, so redelivered or reordered messages
// never undo a later mark-as-read.
func (w *WatermarkWorker) HandleWatermarksMessage(ctx context.Context, msg *amqp.WatermarksUpdatedMessage) error {
	slog.InfoContext(ctx, "Processing watermarks message",
		"id", msg.ID,
		"account", msg.Account,
		"page", msg.Page)

	incoming := msg.CoreWatermarks()
	if len(incoming) == 0 {
		slog.WarnContext(ctx, "Watermarks message carries no valid keys, dropping", "id", msg.ID)
		return nil
	}

	stored, err := w.store.Load(ctx, msg.Account)
	if err != nil {
		return fmt.Errorf("load watermarks for %s: %w", msg.Account, err)
	}

	merged := make(core.Watermarks, len(stored)+len(incoming))
	for k, ts := range stored {
		merged[k] = ts
	}
	for k, ts := range incoming {
		if prev, ok := stored[k]; ok && prev > ts {
			ts = prev
		}
		merged[k] = ts
	}

	if err := w.store.Save(ctx, msg.Account, merged); err != nil {
		return fmt.Errorf("save watermarks for %s: %w", msg.Account, err)
	}

	slog.InfoContext(ctx, "Mirrored watermarks",
		"id", msg.ID,
		"account", msg.Account,
		"count", len(merged))
	return nil
}

// PruneStale drops watermarks older than the retention period. It is a no-op
// without a pruner or retention.
func (w *WatermarkWorker) PruneStale(ctx context.Context) error {
	if w.pruner == nil || w.retention <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-w.retention)
	n, err := w.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune stale watermarks: %w", err)
	}
	if n > 0 {
		accounts, err := w.MirroredAccounts(ctx)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Pruned stale watermarks",
			"rows", n,
			"cutoff", cutoff.Format(time.RFC3339),
			"accounts", accounts)
	}
	return nil
}

// MirroredAccounts counts the accounts with stored watermarks. It is zero
// without a pruner.
func (w *WatermarkWorker) MirroredAccounts(ctx context.Context) (int, error) {
	if w.pruner == nil {
		return 0, nil
	}
	accounts, err := w.pruner.Accounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mirrored accounts: %w", err)
	}
	return len(accounts), nil
}

// Run prunes once at startup and then every interval until ctx is done.
func (w *WatermarkWorker) Run(ctx context.Context, interval time.Duration) error {
	if n, err := w.MirroredAccounts(ctx); err != nil {
		slog.ErrorContext(ctx, "Listing mirrored accounts failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Watermark mirror ready", "accounts", n, "retention", w.retention)
	}
	if err := w.PruneStale(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup prune failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.PruneStale(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic prune failed", "error", err)
			}
		}
	}
}
