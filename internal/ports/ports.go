package ports

import (
	"context"

	"nrsnotify/internal/core"
	"nrsnotify/internal/nrs"
)

// Ports for outbound adapters.
type (
	// NodeClient is the subset of the node API the notification flow calls.
	NodeClient interface {
		GetTime(ctx context.Context) (nrs.TimeResponse, error)
		GetAccountTransactions(ctx context.Context, req nrs.AccountTransactionsRequest) (nrs.TransactionsResponse, error)
	}

	// WatermarkStore persists last-read timestamps per account.
	WatermarkStore interface {
		// Load returns the stored watermarks. An account with nothing stored
		// yields an empty map and no error.
		Load(ctx context.Context, account string) (core.Watermarks, error)
		Save(ctx context.Context, account string, w core.Watermarks) error
	}

	// WatermarkPublisher announces watermark changes to other services.
	WatermarkPublisher interface {
		PublishWatermarksUpdated(ctx context.Context, account, page string, w core.Watermarks) error
	}
)
