package normalize

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
)

var timeType = reflect.TypeOf(time.Time{})

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm"}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime accepts the timestamp spellings generators produce. Bare clock
// times are placed on anchor's date in anchor's location. The zero time is
// returned when nothing parses.
func ParseTime(raw string, anchor time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if anchor.IsZero() {
		return time.Time{}
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := anchor.Date()
			return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, anchor.Location())
		}
	}
	return time.Time{}
}

func timeHook(anchor time.Time) mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != timeType {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return ParseTime(s, anchor), nil
		}
		if t, ok := data.(time.Time); ok {
			return t, nil
		}
		return time.Time{}, nil
	}
}

// decodeLoose decodes a JSON-shaped value into out using json tags, weak
// typing and the lenient time hook.
func decodeLoose(input any, out any, anchor time.Time) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       timeHook(anchor),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// coerceMinutes turns "30", "30 min", 29.5 or json.Number into whole minutes,
// rounding fractions up. ok is false when v carries no number at all.
func coerceMinutes(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(math.Ceil(n)), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return int(math.Ceil(f)), true
		}
	case string:
		s := strings.TrimSpace(n)
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) && r != '.' && r != '-' })
		if end >= 0 {
			s = s[:end]
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(math.Ceil(f)), true
		}
	}
	return 0, false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, float64, json.Number:
		return true
	}
	return false
}
