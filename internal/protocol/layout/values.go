package layout

import (
	"math"
	"reflect"
)

// Record is a decoded or to-be-encoded value tree keyed by field name.
type Record map[string]any

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	if i, ok := toInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return integral(float64(n))
	case float64:
		return integral(n)
	}
	return 0, false
}

// integral accepts whole floats, which is how JSON and YAML decoders hand back numbers.
func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := toUint64(v); ok {
		return float64(u), true
	}
	return 0, false
}

func toChar(v any) (byte, bool) {
	switch c := v.(type) {
	case string:
		switch len(c) {
		case 0:
			return 0, true
		case 1:
			return c[0], true
		}
	case byte:
		return c, true
	case []byte:
		if len(c) == 1 {
			return c[0], true
		}
	}
	return 0, false
}

// sequence flattens any slice or array into []any.
func sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asRecord(v any) (Record, bool) {
	switch r := v.(type) {
	case Record:
		return r, true
	case map[string]any:
		return Record(r), true
	}
	return nil, false
}

func records(v any) ([]Record, bool) {
	switch rs := v.(type) {
	case []Record:
		return rs, true
	case []map[string]any:
		out := make([]Record, len(rs))
		for i, r := range rs {
			out[i] = Record(r)
		}
		return out, true
	}
	items, ok := sequence(v)
	if !ok {
		return nil, false
	}
	out := make([]Record, len(items))
	for i, item := range items {
		r, ok := asRecord(item)
		if !ok {
			return nil, false
		}
		out[i] = r
	}
	return out, true
}
