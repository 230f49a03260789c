package services

import (
	"context"
	"errors"
	"testing"

	"nrsnotify/internal/core"
	"nrsnotify/internal/nrs"
	"nrsnotify/internal/storage/memory"
)

const account = "1234567890"

type fakeNode struct {
	time    *core.Timestamp
	timeErr error
	txs     []core.Transaction
	txErr   error

	lastReq nrs.AccountTransactionsRequest
	txCalls int
}

func (f *fakeNode) GetTime(ctx context.Context) (nrs.TimeResponse, error) {
	if f.timeErr != nil {
		return nrs.TimeResponse{}, f.timeErr
	}
	return nrs.TimeResponse{Time: f.time}, nil
}

func (f *fakeNode) GetAccountTransactions(ctx context.Context, req nrs.AccountTransactionsRequest) (nrs.TransactionsResponse, error) {
	f.lastReq = req
	f.txCalls++
	if f.txErr != nil {
		return nrs.TransactionsResponse{}, f.txErr
	}
	return nrs.TransactionsResponse{Transactions: f.txs}, nil
}

type fakePublisher struct {
	calls   int
	page    string
	account string
	err     error
}

func (f *fakePublisher) PublishWatermarksUpdated(ctx context.Context, account, page string, w core.Watermarks) error {
	f.calls++
	f.account = account
	f.page = page
	return f.err
}

type failingStore struct{ loadErr, saveErr error }

func (f failingStore) Load(ctx context.Context, account string) (core.Watermarks, error) {
	return nil, f.loadErr
}

func (f failingStore) Save(ctx context.Context, account string, w core.Watermarks) error {
	return f.saveErr
}

func ts(v core.Timestamp) *core.Timestamp { return &v }

func TestRefresh_EmptyStorageInitializesToServerTime(t *testing.T) {
	node := &fakeNode{time: ts(5000)}
	store := memory.New()
	reg := core.DefaultRegistry()
	svc := NewNotificationService(node, nil, nil)

	if err := svc.Refresh(context.Background(), reg, account, store); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	for k, wm := range reg.Watermarks() {
		if wm != 5000 {
			t.Fatalf("%s: watermark %d, want 5000", k, wm)
		}
	}
	if reg.Total() != 0 {
		t.Fatalf("total %d, want 0", reg.Total())
	}
	saved, _ := store.Load(context.Background(), account)
	if len(saved) != len(reg.Watermarks()) {
		t.Fatalf("saved %d watermarks, want %d", len(saved), len(reg.Watermarks()))
	}
	if node.lastReq.Timestamp != core.Cutoff(5000) || node.lastReq.LastIndex != 99 || node.lastReq.Account != account {
		t.Fatalf("unexpected transactions request %+v", node.lastReq)
	}
}

func TestRefresh_CountsAgainstPersistedWatermark(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	key := core.WatermarkKey{Type: core.TypePayment, Subtype: 0}
	_ = store.Save(ctx, account, core.Watermarks{key: 1000})

	node := &fakeNode{
		time: ts(2_000_000),
		txs: []core.Transaction{
			{Type: core.TypePayment, Subtype: 0, Recipient: account, Timestamp: 1500},
			{Type: core.TypePayment, Subtype: 0, Recipient: account, Timestamp: 900},
			{Type: core.TypePayment, Subtype: 0, Recipient: "other", Timestamp: 1600},
			{Type: core.TypeMessaging, Subtype: 0, Recipient: account, Timestamp: 1700},
		},
	}
	reg := core.DefaultRegistry()
	svc := NewNotificationService(node, nil, nil)

	if err := svc.Refresh(ctx, reg, account, store); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	typ, st, _ := reg.Lookup(core.TypePayment, 0)
	if st.Count != 1 || typ.Count != 1 {
		t.Fatalf("payment counts sub=%d type=%d, want 1/1", st.Count, typ.Count)
	}
	// Messaging starts at server time, so the older message does not count.
	if reg.Total() != 1 {
		t.Fatalf("total %d, want 1", reg.Total())
	}
	if err := reg.CheckInvariant(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestRefresh_NoServerTimeSkips(t *testing.T) {
	tests := []struct {
		name string
		node *fakeNode
	}{
		{"missing time", &fakeNode{}},
		{"node error", &fakeNode{timeErr: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			reg := core.DefaultRegistry()
			svc := NewNotificationService(tt.node, nil, nil)

			if err := svc.Refresh(context.Background(), reg, account, store); err != nil {
				t.Fatalf("refresh: %v", err)
			}
			if tt.node.txCalls != 0 {
				t.Fatalf("transactions requested without server time")
			}
			saved, _ := store.Load(context.Background(), account)
			if len(saved) != 0 {
				t.Fatalf("watermarks saved without server time: %v", saved)
			}
		})
	}
}

func TestRefresh_TransactionsUnavailableStillPersists(t *testing.T) {
	for _, node := range []*fakeNode{
		{time: ts(5000), txErr: errors.New("timeout")},
		{time: ts(5000)}, // no transactions field
	} {
		store := memory.New()
		reg := core.DefaultRegistry()
		if err := NewNotificationService(node, nil, nil).Refresh(context.Background(), reg, account, store); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if reg.Total() != 0 {
			t.Fatalf("total %d, want 0", reg.Total())
		}
		saved, _ := store.Load(context.Background(), account)
		if len(saved) == 0 {
			t.Fatalf("expected watermarks to be saved")
		}
	}
}

func TestRefresh_LoadErrorFallsBackToServerTime(t *testing.T) {
	reg := core.DefaultRegistry()
	svc := NewNotificationService(&fakeNode{time: ts(4242)}, nil, nil)
	err := svc.Refresh(context.Background(), reg, account, failingStore{loadErr: errors.New("bad cookie")})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	for _, wm := range reg.Watermarks() {
		if wm != 4242 {
			t.Fatalf("watermark %d, want 4242", wm)
		}
	}
}

func TestRefresh_SaveErrorReturned(t *testing.T) {
	reg := core.DefaultRegistry()
	svc := NewNotificationService(&fakeNode{time: ts(1)}, nil, nil)
	err := svc.Refresh(context.Background(), reg, account, failingStore{saveErr: errors.New("disk full")})
	if err == nil {
		t.Fatalf("expected save error")
	}
}

func TestMarkRead_AllAndPage(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{
		time: ts(1000),
		txs: []core.Transaction{
			{Type: core.TypePayment, Subtype: 0, Recipient: account, Timestamp: 1001},
			{Type: core.TypeMessaging, Subtype: 0, Recipient: account, Timestamp: 1002},
		},
	}
	store := memory.New()
	pub := &fakePublisher{}
	reg := core.DefaultRegistry()
	reg.Reconcile(nil, 1000)
	svc := NewNotificationService(node, pub, nil)
	svc.InitCounts(ctx, reg, account, 1000)
	if reg.Total() != 2 {
		t.Fatalf("setup total %d, want 2", reg.Total())
	}

	node.time = ts(3000)
	touched, err := svc.MarkRead(ctx, reg, account, core.PageMessages, store)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if touched != 1 || reg.Total() != 1 {
		t.Fatalf("touched=%d total=%d, want 1/1", touched, reg.Total())
	}
	_, msg, _ := reg.Lookup(core.TypeMessaging, 0)
	if msg.Watermark != 3000 {
		t.Fatalf("message watermark %d, want 3000", msg.Watermark)
	}
	if pub.calls != 1 || pub.page != core.PageMessages || pub.account != account {
		t.Fatalf("unexpected publish %+v", pub)
	}

	node.time = ts(4000)
	if _, err := svc.MarkRead(ctx, reg, account, "", store); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if reg.Total() != 0 {
		t.Fatalf("total %d after mark all, want 0", reg.Total())
	}
	saved, _ := store.Load(ctx, account)
	for k, wm := range saved {
		if wm != 4000 {
			t.Fatalf("%s: saved watermark %d, want 4000", k, wm)
		}
	}
	if err := reg.CheckInvariant(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestMarkRead_NoServerTimeLeavesState(t *testing.T) {
	ctx := context.Background()
	reg := core.DefaultRegistry()
	reg.Reconcile(nil, 1000)
	reg.Apply(account, []core.Transaction{{Type: core.TypePayment, Subtype: 0, Recipient: account, Timestamp: 2000}})
	pub := &fakePublisher{}
	store := memory.New()

	touched, err := NewNotificationService(&fakeNode{}, pub, nil).MarkRead(ctx, reg, account, "", store)
	if err != nil || touched != 0 {
		t.Fatalf("touched=%d err=%v", touched, err)
	}
	if reg.Total() != 1 || pub.calls != 0 {
		t.Fatalf("state changed without server time: total=%d publishes=%d", reg.Total(), pub.calls)
	}
}

func TestMarkRead_PublishErrorIsNotFatal(t *testing.T) {
	reg := core.DefaultRegistry()
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewNotificationService(&fakeNode{time: ts(10)}, pub, nil)
	if _, err := svc.MarkRead(context.Background(), reg, account, "", memory.New()); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("expected one publish attempt, got %d", pub.calls)
	}
}
