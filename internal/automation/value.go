package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value wraps a single field value read from a record. The zero Value
// stands for an absent field.
type Value struct {
	raw any
}

func NewValue(raw any) Value {
	return Value{raw: raw}
}

func (v Value) Raw() any {
	return v.raw
}

// String renders the value the way conditions compare it: absent values
// are "", numbers use their shortest decimal form and arrays are joined
// with ",".
func (v Value) String() string {
	return stringify(v.raw)
}

// IsEmpty is true only for absent or null values and empty strings. An
// empty array is a value and is not empty.
func (v Value) IsEmpty() bool {
	switch x := v.raw.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// Float parses the value as a number.
func (v Value) Float() (float64, bool) {
	switch x := v.raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Links interprets the value as a link field: an array of record ids. A
// single string id is accepted as a one-element link. The ids end at the
// first element that is not a string, so a malformed first element yields
// no ids rather than promoting a later one.
func (v Value) Links() ([]string, bool) {
	switch x := v.raw.(type) {
	case []string:
		return x, true
	case []any:
		ids := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				break
			}
			ids = append(ids, s)
		}
		return ids, true
	case string:
		if x == "" {
			return nil, true
		}
		return []string{x}, true
	}
	return nil, false
}

func stringify(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
	return fmt.Sprint(raw)
}
