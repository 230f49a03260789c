package core

import (
	"fmt"
	"sort"
)

// Registry holds the transaction types of one session together with their
// unread counts and watermarks. It is not safe for concurrent use.
type Registry struct {
	types []*TransactionType
}

// NewRegistry builds a registry from the given types, ordering types and
// subtypes by code. The slices are copied.
func NewRegistry(types []TransactionType) *Registry {
	r := &Registry{types: make([]*TransactionType, 0, len(types))}
	for _, t := range types {
		tt := t
		tt.SubTypes = make([]*SubType, 0, len(t.SubTypes))
		for _, st := range t.SubTypes {
			s := *st
			tt.SubTypes = append(tt.SubTypes, &s)
		}
		sort.Slice(tt.SubTypes, func(i, j int) bool { return tt.SubTypes[i].Code < tt.SubTypes[j].Code })
		r.types = append(r.types, &tt)
	}
	sort.Slice(r.types, func(i, j int) bool { return r.types[i].Code < r.types[j].Code })
	return r
}

// Clone returns a deep copy.
func (r *Registry) Clone() *Registry {
	types := make([]TransactionType, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, *t)
	}
	return NewRegistry(types)
}

// Types returns the ordered transaction types. Callers must not mutate them.
func (r *Registry) Types() []*TransactionType {
	return r.types
}

// Type returns the transaction type with the given code.
func (r *Registry) Type(code int) (*TransactionType, error) {
	for _, t := range r.types {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, code)
}

// Lookup returns a type and one of its subtypes.
func (r *Registry) Lookup(typ, subtype int) (*TransactionType, *SubType, error) {
	t, err := r.Type(typ)
	if err != nil {
		return nil, nil, err
	}
	for _, st := range t.SubTypes {
		if st.Code == subtype {
			return t, st, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %d/%d", ErrUnknownSubtype, typ, subtype)
}

// Reconcile restores persisted watermarks and zeroes all counts. Subtypes
// with no persisted watermark, or a zero one, start at now.
func (r *Registry) Reconcile(persisted Watermarks, now Timestamp) {
	for _, t := range r.types {
		t.Count = 0
		for _, st := range t.SubTypes {
			if ts, ok := persisted[WatermarkKey{Type: t.Code, Subtype: st.Code}]; ok && ts != 0 {
				st.Watermark = ts
			} else {
				st.Watermark = now
			}
			st.Count = 0
		}
	}
}

// Apply counts the transactions addressed to account that are newer than
// their subtype's watermark. Only subtypes with a receiver page count.
// It returns how many transactions were counted.
func (r *Registry) Apply(account string, txs []Transaction) int {
	counted := 0
	for _, tx := range txs {
		if tx.Recipient == "" || tx.Recipient != account {
			continue
		}
		t, st, err := r.Lookup(tx.Type, tx.Subtype)
		if err != nil {
			continue
		}
		if st.ReceiverPage == "" || tx.Timestamp <= st.Watermark {
			continue
		}
		st.Count++
		t.Count++
		counted++
	}
	return counted
}

// MarkRead moves watermarks to now and clears counts for every subtype, or
// only those whose receiver page equals page when page is not empty. It
// returns the number of subtypes touched.
func (r *Registry) MarkRead(now Timestamp, page string) int {
	touched := 0
	for _, t := range r.types {
		for _, st := range t.SubTypes {
			if page != "" && st.ReceiverPage != page {
				continue
			}
			cleared := st.Count
			st.Watermark = now
			st.Count = 0
			t.Count -= cleared
			touched++
		}
	}
	return touched
}

// Watermarks snapshots the watermark of every subtype.
func (r *Registry) Watermarks() Watermarks {
	w := make(Watermarks)
	for _, t := range r.types {
		for _, st := range t.SubTypes {
			w[WatermarkKey{Type: t.Code, Subtype: st.Code}] = st.Watermark
		}
	}
	return w
}

// Total is the sum of all subtype counts.
func (r *Registry) Total() int {
	total := 0
	for _, t := range r.types {
		for _, st := range t.SubTypes {
			total += st.Count
		}
	}
	return total
}

// Pages lists the distinct receiver pages in registry order.
func (r *Registry) Pages() []string {
	seen := make(map[string]bool)
	var pages []string
	for _, t := range r.types {
		for _, st := range t.SubTypes {
			if st.ReceiverPage == "" || seen[st.ReceiverPage] {
				continue
			}
			seen[st.ReceiverPage] = true
			pages = append(pages, st.ReceiverPage)
		}
	}
	return pages
}

// CheckInvariant verifies that every type count equals the sum of its subtype counts.
func (r *Registry) CheckInvariant() error {
	for _, t := range r.types {
		sum := 0
		for _, st := range t.SubTypes {
			sum += st.Count
		}
		if sum != t.Count {
			return fmt.Errorf("%w: type %d has %d, subtypes sum to %d", ErrInvariant, t.Code, t.Count, sum)
		}
	}
	return nil
}
