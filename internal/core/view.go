package core

const (
	BadgeActive = "#e65"
	BadgeMuted  = "#a6a6a6"
)

type (
	// Row is one clickable entry of the notification popover.
	Row struct {
		Type    int
		Subtype int
		Icon    string
		Title   string
		Count   int
		Page    string
	}

	// View is everything needed to draw the badge and the popover.
	View struct {
		Rows       []Row
		Total      int
		HasUnread  bool
		BadgeColor string
	}
)

// TranslateFunc resolves an i18n key, returning fallback when the key is unknown.
type TranslateFunc func(key, fallback string) string

// BuildView collects every subtype with unread transactions, in registry order.
func BuildView(r *Registry, t TranslateFunc) View {
	if t == nil {
		t = func(_, fallback string) string { return fallback }
	}
	v := View{BadgeColor: BadgeMuted}
	for _, typ := range r.types {
		for _, st := range typ.SubTypes {
			if st.Count <= 0 {
				continue
			}
			v.Total += st.Count
			v.Rows = append(v.Rows, Row{
				Type:    typ.Code,
				Subtype: st.Code,
				Icon:    st.Icon,
				Title:   t(st.I18nKey, st.Title),
				Count:   st.Count,
				Page:    st.ReceiverPage,
			})
		}
	}
	if v.Total > 0 {
		v.HasUnread = true
		v.BadgeColor = BadgeActive
	}
	return v
}
