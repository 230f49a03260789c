package services

import (
	"context"
	"fmt"

	"nrsnotify/internal/core"
	"nrsnotify/internal/log"
	"nrsnotify/internal/nrs"
	"nrsnotify/internal/ports"
)

// Transactions requested per count pass, as indices 0..99.
const transactionPageSize = 100

// NotificationService runs the notification flows against a caller-owned
// registry. The caller serializes calls for the same registry.
type NotificationService struct {
	node      ports.NodeClient
	publisher ports.WatermarkPublisher
	logger    *log.Logger
}

func NewNotificationService(node ports.NodeClient, publisher ports.WatermarkPublisher, logger *log.Logger) *NotificationService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentNotify)
	}
	return &NotificationService{
		node:      node,
		publisher: publisher,
		logger:    logger,
	}
}

// Refresh restores persisted watermarks, zeroes counts and recounts the
// last two weeks of transactions. Without a server time nothing changes.
func (s *NotificationService) Refresh(ctx context.Context, reg *core.Registry, account string, store ports.WatermarkStore) error {
	persisted, err := store.Load(ctx, account)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load watermarks, starting from server time",
			log.FieldAccount, account, log.FieldError, err)
		persisted = core.Watermarks{}
	}

	now, ok := s.serverTime(ctx, log.OpRefresh)
	if !ok {
		return nil
	}

	reg.Reconcile(persisted, now)
	s.InitCounts(ctx, reg, account, now)

	if err := store.Save(ctx, account, reg.Watermarks()); err != nil {
		return fmt.Errorf("save watermarks: %w", err)
	}

	s.logger.DebugContext(ctx, "Notifications refreshed",
		log.FieldAccount, account,
		log.FieldServerTime, int64(now),
		log.FieldTotal, reg.Total())
	return nil
}

// InitCounts counts transactions to account from the window ending at now
// that are newer than their subtype watermark. It returns the number counted.
func (s *NotificationService) InitCounts(ctx context.Context, reg *core.Registry, account string, now core.Timestamp) int {
	cutoff := core.Cutoff(now)
	resp, err := s.node.GetAccountTransactions(ctx, nrs.AccountTransactionsRequest{
		Account:    account,
		Timestamp:  cutoff,
		FirstIndex: 0,
		LastIndex:  transactionPageSize - 1,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Account transactions unavailable, skipping count",
			log.FieldAccount, account, log.FieldCutoff, int64(cutoff), log.FieldError, err)
		return 0
	}
	if resp.Transactions == nil {
		s.logger.DebugContext(ctx, "No transactions in response", log.FieldAccount, account)
		return 0
	}

	counted := reg.Apply(account, resp.Transactions)
	s.logger.DebugContext(ctx, "Transactions counted",
		log.FieldAccount, account,
		log.FieldCutoff, int64(cutoff),
		log.FieldCounted, counted,
		"received", len(resp.Transactions))
	return counted
}

// MarkRead moves watermarks to the server time and clears counts, for every
// subtype or only those of page. It returns the number of subtypes touched.
func (s *NotificationService) MarkRead(ctx context.Context, reg *core.Registry, account, page string, store ports.WatermarkStore) (int, error) {
	now, ok := s.serverTime(ctx, log.OpMarkRead)
	if !ok {
		return 0, nil
	}

	touched := reg.MarkRead(now, page)
	watermarks := reg.Watermarks()
	if err := store.Save(ctx, account, watermarks); err != nil {
		return touched, fmt.Errorf("save watermarks: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishWatermarksUpdated(ctx, account, page, watermarks); err != nil {
			// The local state is already saved.
			s.logger.ErrorContext(ctx, "Failed to publish watermark update",
				log.FieldAccount, account, log.FieldError, err)
		}
	}

	log.NewStructuredLogger(s.logger).LogMarkedRead(ctx, account, page, touched, int64(now))
	return touched, nil
}

// serverTime asks the node for its time. ok is false when the call failed or
// the response carried no time.
func (s *NotificationService) serverTime(ctx context.Context, op string) (core.Timestamp, bool) {
	resp, err := s.node.GetTime(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Server time unavailable, skipping update",
			log.FieldOperation, op, log.FieldError, err)
		return 0, false
	}
	if resp.Time == nil {
		s.logger.WarnContext(ctx, "Server time missing from response, skipping update", log.FieldOperation, op)
		return 0, false
	}
	return *resp.Time, true
}
