package core

import "testing"

func TestBuildViewEmpty(t *testing.T) {
	r := testRegistry()
	r.Reconcile(nil, 1000)
	v := BuildView(r, nil)
	if v.HasUnread || v.Total != 0 || len(v.Rows) != 0 || v.BadgeColor != BadgeMuted {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestBuildViewRows(t *testing.T) {
	r := testRegistry()
	r.Reconcile(nil, 1000)
	r.Apply(account, []Transaction{
		{Type: 1, Subtype: 0, Recipient: account, Timestamp: 1100},
		{Type: 0, Subtype: 0, Recipient: account, Timestamp: 1100},
		{Type: 0, Subtype: 0, Recipient: account, Timestamp: 1200},
	})
	translate := func(key, fallback string) string {
		if key == "ordinary_payment" {
			return "Pagamento"
		}
		return fallback
	}

	v := BuildView(r, translate)

	if !v.HasUnread || v.Total != 3 || v.BadgeColor != BadgeActive {
		t.Fatalf("unexpected summary %+v", v)
	}
	if len(v.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(v.Rows))
	}
	if v.Rows[0].Title != "Pagamento" || v.Rows[0].Count != 2 || v.Rows[0].Page != "transactions" {
		t.Fatalf("unexpected first row %+v", v.Rows[0])
	}
	if v.Rows[1].Title != "Arbitrary Message" || v.Rows[1].Count != 1 {
		t.Fatalf("unexpected second row %+v", v.Rows[1])
	}
}
