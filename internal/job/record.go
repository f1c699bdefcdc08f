package job

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one raw result item as returned by a provider. Getters never
// fail: a missing or mistyped field yields the zero value.
type Record map[string]any

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value at key as a string. Numbers are formatted.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// FirstString returns the first non-blank string among keys.
func (r Record) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(r.String(k)); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the value at key as an int64. Fractions are truncated and
// numeric strings are parsed.
func (r Record) Int(key string) int64 {
	n, _ := r.IntOK(key)
	return n
}

// IntOK is Int that also reports whether a number was found.
func (r Record) IntOK(key string) (int64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Float returns the value at key as a float64.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case json.Number:
		f, _ := v.Float64()
		return f
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	}
	return 0
}

// Bool returns the value at key as a bool. "true"/"1" strings count.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case json.Number:
		return v.String() != "0"
	case float64:
		return v != 0
	}
	return false
}

// Map returns the nested object at key, or an empty Record.
func (r Record) Map(key string) Record {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	}
	return Record{}
}

// Records returns the nested array of objects at key. Non-object elements
// are skipped.
func (r Record) Records(key string) []Record {
	var arr []any
	switch v := r[key].(type) {
	case []any:
		arr = v
	case []map[string]any:
		out := make([]Record, 0, len(v))
		for _, m := range v {
			out = append(out, Record(m))
		}
		return out
	case []Record:
		return v
	default:
		return nil
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// Time parses the value at key as a timestamp. RFC 3339 strings and unix
// seconds are accepted.
func (r Record) Time(key string) *time.Time {
	if s, ok := r[key].(string); ok {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z0700", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
		return nil
	}
	if secs, ok := r.IntOK(key); ok && secs > 0 {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	return nil
}
