package core

import (
	"errors"
	"testing"
)

const account = "1234567890"

func testRegistry() *Registry {
	return NewRegistry([]TransactionType{
		{Code: 0, Name: "Payment", SubTypes: []*SubType{
			{Code: 0, Title: "Ordinary Payment", I18nKey: "ordinary_payment", ReceiverPage: "transactions"},
		}},
		{Code: 1, Name: "Messaging", SubTypes: []*SubType{
			{Code: 1, Title: "Alias Assignment", I18nKey: "alias_assignment"},
			{Code: 0, Title: "Arbitrary Message", I18nKey: "arbitrary_message", ReceiverPage: "messages"},
		}},
		{Code: 4, Name: "Account Control", SubTypes: []*SubType{
			{Code: 0, Title: "Balance Leasing", I18nKey: "balance_leasing", ReceiverPage: "transactions"},
		}},
	})
}

func mustLookup(t *testing.T, r *Registry, typ, sub int) (*TransactionType, *SubType) {
	t.Helper()
	tt, st, err := r.Lookup(typ, sub)
	if err != nil {
		t.Fatalf("lookup %d/%d: %v", typ, sub, err)
	}
	return tt, st
}

func TestNewRegistryOrdersSubtypes(t *testing.T) {
	r := testRegistry()
	msg, err := r.Type(1)
	if err != nil {
		t.Fatalf("type: %v", err)
	}
	if msg.SubTypes[0].Code != 0 || msg.SubTypes[1].Code != 1 {
		t.Fatalf("subtypes not ordered: %d, %d", msg.SubTypes[0].Code, msg.SubTypes[1].Code)
	}
	if _, err := r.Type(9); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, _, err := r.Lookup(1, 9); !errors.Is(err, ErrUnknownSubtype) {
		t.Fatalf("expected ErrUnknownSubtype, got %v", err)
	}
}

func TestReconcileEmptyStorageUsesServerTime(t *testing.T) {
	r := testRegistry()
	_, st := mustLookup(t, r, 0, 0)
	st.Count = 3
	r.types[0].Count = 3

	r.Reconcile(nil, 5000)

	for k, ts := range r.Watermarks() {
		if ts != 5000 {
			t.Fatalf("%v: watermark %d, want 5000", k, ts)
		}
	}
	if r.Total() != 0 {
		t.Fatalf("expected zero total, got %d", r.Total())
	}
	if err := r.CheckInvariant(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestReconcilePrefersPersisted(t *testing.T) {
	r := testRegistry()
	r.Reconcile(Watermarks{
		{Type: 0, Subtype: 0}: 1000,
		{Type: 1, Subtype: 0}: 0, // zero counts as absent
	}, 5000)

	_, pay := mustLookup(t, r, 0, 0)
	_, msg := mustLookup(t, r, 1, 0)
	if pay.Watermark != 1000 {
		t.Fatalf("payment watermark %d, want 1000", pay.Watermark)
	}
	if msg.Watermark != 5000 {
		t.Fatalf("message watermark %d, want 5000", msg.Watermark)
	}
}

func TestApplyCountsNewTransaction(t *testing.T) {
	r := testRegistry()
	r.Reconcile(Watermarks{{Type: 0, Subtype: 0}: 1000}, 1000)

	n := r.Apply(account, []Transaction{{Type: 0, Subtype: 0, Recipient: account, Timestamp: 1500}})

	typ, st := mustLookup(t, r, 0, 0)
	if n != 1 || st.Count != 1 || typ.Count != 1 {
		t.Fatalf("counted=%d subtype=%d type=%d, want 1/1/1", n, st.Count, typ.Count)
	}
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want int
	}{
		{"newer to account", Transaction{Type: 1, Subtype: 0, Recipient: account, Timestamp: 1001}, 1},
		{"equal to watermark", Transaction{Type: 1, Subtype: 0, Recipient: account, Timestamp: 1000}, 0},
		{"older than watermark", Transaction{Type: 1, Subtype: 0, Recipient: account, Timestamp: 10}, 0},
		{"other recipient", Transaction{Type: 1, Subtype: 0, Recipient: "42", Timestamp: 2000}, 0},
		{"no recipient", Transaction{Type: 1, Subtype: 0, Timestamp: 2000}, 0},
		{"no receiver page", Transaction{Type: 1, Subtype: 1, Recipient: account, Timestamp: 2000}, 0},
		{"unknown type", Transaction{Type: 9, Subtype: 0, Recipient: account, Timestamp: 2000}, 0},
		{"unknown subtype", Transaction{Type: 1, Subtype: 9, Recipient: account, Timestamp: 2000}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRegistry()
			r.Reconcile(nil, 1000)
			if got := r.Apply(account, []Transaction{tt.tx}); got != tt.want {
				t.Errorf("Apply() = %d, want %d", got, tt.want)
			}
			if r.Total() != tt.want {
				t.Errorf("Total() = %d, want %d", r.Total(), tt.want)
			}
			if err := r.CheckInvariant(); err != nil {
				t.Errorf("invariant: %v", err)
			}
		})
	}
}

func TestMarkReadAll(t *testing.T) {
	r := testRegistry()
	r.Reconcile(nil, 1000)
	r.Apply(account, []Transaction{
		{Type: 0, Subtype: 0, Recipient: account, Timestamp: 1100},
		{Type: 1, Subtype: 0, Recipient: account, Timestamp: 1200},
		{Type: 4, Subtype: 0, Recipient: account, Timestamp: 1300},
	})
	if r.Total() != 3 {
		t.Fatalf("setup total %d, want 3", r.Total())
	}

	touched := r.MarkRead(7000, "")

	if touched != 4 {
		t.Fatalf("touched %d subtypes, want 4", touched)
	}
	for _, typ := range r.Types() {
		if typ.Count != 0 {
			t.Fatalf("type %d count %d, want 0", typ.Code, typ.Count)
		}
		for _, st := range typ.SubTypes {
			if st.Count != 0 || st.Watermark != 7000 {
				t.Fatalf("subtype %d/%d count=%d watermark=%d", typ.Code, st.Code, st.Count, st.Watermark)
			}
		}
	}
}

func TestMarkReadPageOnly(t *testing.T) {
	r := testRegistry()
	r.Reconcile(nil, 1000)
	r.Apply(account, []Transaction{
		{Type: 0, Subtype: 0, Recipient: account, Timestamp: 1100},
		{Type: 0, Subtype: 0, Recipient: account, Timestamp: 1150},
		{Type: 1, Subtype: 0, Recipient: account, Timestamp: 1200},
		{Type: 4, Subtype: 0, Recipient: account, Timestamp: 1300},
	})

	touched := r.MarkRead(7000, "transactions")

	if touched != 2 {
		t.Fatalf("touched %d, want 2", touched)
	}
	pay, paySt := mustLookup(t, r, 0, 0)
	if pay.Count != 0 || paySt.Count != 0 || paySt.Watermark != 7000 {
		t.Fatalf("payment not reset: type=%d sub=%d wm=%d", pay.Count, paySt.Count, paySt.Watermark)
	}
	_, lease := mustLookup(t, r, 4, 0)
	if lease.Count != 0 || lease.Watermark != 7000 {
		t.Fatalf("leasing not reset: %d/%d", lease.Count, lease.Watermark)
	}
	msg, msgSt := mustLookup(t, r, 1, 0)
	if msg.Count != 1 || msgSt.Count != 1 || msgSt.Watermark != 1000 {
		t.Fatalf("messages changed: type=%d sub=%d wm=%d", msg.Count, msgSt.Count, msgSt.Watermark)
	}
	if err := r.CheckInvariant(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestMarkReadUnknownPage(t *testing.T) {
	r := testRegistry()
	r.Reconcile(nil, 1000)
	if n := r.MarkRead(2000, "nowhere"); n != 0 {
		t.Fatalf("touched %d, want 0", n)
	}
	for _, ts := range r.Watermarks() {
		if ts != 1000 {
			t.Fatalf("watermark moved to %d", ts)
		}
	}
}

func TestCheckInvariantDetectsDrift(t *testing.T) {
	r := testRegistry()
	r.types[0].Count = 2
	if err := r.CheckInvariant(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := testRegistry()
	r.Reconcile(nil, 1000)
	c := r.Clone()
	c.MarkRead(9000, "")
	_, st := mustLookup(t, r, 0, 0)
	if st.Watermark != 1000 {
		t.Fatalf("clone mutated original: %d", st.Watermark)
	}
}

func TestPages(t *testing.T) {
	got := testRegistry().Pages()
	if len(got) != 2 || got[0] != "transactions" || got[1] != "messages" {
		t.Fatalf("unexpected pages %v", got)
	}
}

func TestDefaultRegistryIsFresh(t *testing.T) {
	a := DefaultRegistry()
	a.Reconcile(nil, 100)
	b := DefaultRegistry()
	_, st := mustLookup(t, b, TypePayment, 0)
	if st.Watermark != 0 {
		t.Fatalf("default registry shares state: %d", st.Watermark)
	}
	if err := b.CheckInvariant(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}
