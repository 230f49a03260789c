// Package i18n translates UI keys, falling back to the caller's default text.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.English, language.Italian}

var messages = map[language.Tag]map[string]string{
	language.English: {
		"notifications_mark_as_read": "Mark all as read",
		"no_notifications":           "No current notifications",
		"notifications":              "Notifications",
		"refresh":                    "Refresh",
		"account":                    "Account",
		"ordinary_payment":           "Ordinary Payment",
		"arbitrary_message":          "Arbitrary Message",
		"alias_sale":                 "Alias Sale",
		"alias_buy":                  "Alias Buy",
		"asset_transfer":             "Asset Transfer",
		"marketplace_purchase":       "Marketplace Purchase",
		"marketplace_delivery":       "Marketplace Delivery",
		"marketplace_feedback":       "Marketplace Feedback",
		"marketplace_refund":         "Marketplace Refund",
		"balance_leasing":            "Balance Leasing",
	},
	language.Italian: {
		"notifications_mark_as_read": "Segna tutto come letto",
		"no_notifications":           "Nessuna notifica",
		"notifications":              "Notifiche",
		"refresh":                    "Aggiorna",
		"account":                    "Conto",
		"ordinary_payment":           "Pagamento ordinario",
		"arbitrary_message":          "Messaggio",
		"alias_sale":                 "Vendita alias",
		"alias_buy":                  "Acquisto alias",
		"asset_transfer":             "Trasferimento asset",
		"marketplace_purchase":       "Acquisto marketplace",
		"marketplace_delivery":       "Consegna marketplace",
		"marketplace_feedback":       "Feedback marketplace",
		"marketplace_refund":         "Rimborso marketplace",
		"balance_leasing":            "Leasing del saldo",
	},
}

// Bundle holds the catalog of every supported language.
type Bundle struct {
	catalog *catalog.Builder
	matcher language.Matcher
}

// NewBundle loads the built-in messages.
func NewBundle() *Bundle {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			// Keys and messages are static; SetString only fails on malformed tags.
			_ = b.SetString(tag, key, msg)
		}
	}
	return &Bundle{catalog: b, matcher: language.NewMatcher(supported)}
}

// Translator resolves keys for one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
	known   map[string]string
}

// For picks the best supported language for the given preferences, such as
// an Accept-Language header or a configured default.
func (b *Bundle) For(prefs ...string) *Translator {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, _ := b.matcher.Match(tags...)
	tag := supported[idx]
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b.catalog)),
		known:   messages[tag],
	}
}

// Language returns the BCP 47 tag in use.
func (t *Translator) Language() string {
	return t.tag.String()
}

// T returns the translation for key, or fallback when the key is unknown.
func (t *Translator) T(key, fallback string) string {
	if _, ok := t.known[key]; !ok {
		return fallback
	}
	return t.printer.Sprintf(key)
}
