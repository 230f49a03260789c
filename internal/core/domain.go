package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NotificationWindow is how far back the count initializer looks, in node seconds.
const NotificationWindow Timestamp = 60 * 60 * 24 * 14

type (
	// Timestamp is a node timestamp in seconds since the node epoch.
	Timestamp int64

	SubType struct {
		Code         int
		Title        string
		I18nKey      string
		ReceiverPage string // empty when the subtype never notifies
		Icon         string
		Watermark    Timestamp
		Count        int
	}

	TransactionType struct {
		Code     int
		Name     string
		Count    int // aggregate of SubTypes[*].Count
		SubTypes []*SubType
	}

	Transaction struct {
		Type      int       `json:"type"`
		Subtype   int       `json:"subtype"`
		Recipient string    `json:"recipient"`
		Timestamp Timestamp `json:"timestamp"`
	}

	WatermarkKey struct {
		Type    int
		Subtype int
	}

	// Watermarks maps a subtype to its last-read timestamp.
	Watermarks map[WatermarkKey]Timestamp
)

var (
	ErrUnknownType    = errors.New("unknown transaction type")
	ErrUnknownSubtype = errors.New("unknown transaction subtype")
	ErrInvariant      = errors.New("type count does not match subtype counts")
	ErrInvalidKey     = errors.New("invalid watermark key")
)

// String renders the persisted key form, ts_<type>_<subtype>.
func (k WatermarkKey) String() string {
	return "ts_" + strconv.Itoa(k.Type) + "_" + strconv.Itoa(k.Subtype)
}

// ParseWatermarkKey parses a key produced by WatermarkKey.String.
func ParseWatermarkKey(s string) (WatermarkKey, error) {
	rest, ok := strings.CutPrefix(s, "ts_")
	if !ok {
		return WatermarkKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	typ, sub, ok := strings.Cut(rest, "_")
	if !ok {
		return WatermarkKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	t, err := strconv.Atoi(typ)
	if err != nil {
		return WatermarkKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	st, err := strconv.Atoi(sub)
	if err != nil {
		return WatermarkKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return WatermarkKey{Type: t, Subtype: st}, nil
}

// Encode converts watermarks to the string-keyed form used for persistence.
func (w Watermarks) Encode() map[string]Timestamp {
	out := make(map[string]Timestamp, len(w))
	for k, ts := range w {
		out[k.String()] = ts
	}
	return out
}

// DecodeWatermarks is the inverse of Encode. Keys that do not parse are dropped.
func DecodeWatermarks(m map[string]Timestamp) Watermarks {
	out := make(Watermarks, len(m))
	for s, ts := range m {
		k, err := ParseWatermarkKey(s)
		if err != nil {
			continue
		}
		out[k] = ts
	}
	return out
}

// Cutoff returns the start of the notification window ending at now.
func Cutoff(now Timestamp) Timestamp {
	return now - NotificationWindow
}
