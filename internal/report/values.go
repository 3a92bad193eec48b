package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/atlekbai/report_executor/internal/catalog"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// coerce converts a decoded JSON scalar into the Go value bound for a field of
// type typ. Arrays, objects and nulls are rejected.
func coerce(v any, typ catalog.FieldType) (any, error) {
	switch v.(type) {
	case nil:
		return nil, fmt.Errorf("null values are not allowed, use is_null")
	case map[string]any, []any:
		return nil, fmt.Errorf("value must be a scalar")
	}

	switch typ {
	case catalog.FieldNumber:
		return toNumber(v)
	case catalog.FieldBoolean:
		return toBool(v)
	case catalog.FieldDate:
		return toDate(v)
	case catalog.FieldText:
		return toText(v)
	}
	return nil, fmt.Errorf("unsupported field type %q", typ)
}

func toNumber(v any) (any, error) {
	switch n := v.(type) {
	case json.Number:
		return parseNumber(n.String())
	case string:
		return parseNumber(strings.TrimSpace(n))
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return nil, fmt.Errorf("expected a number, got %T", v)
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("expected a number, got %q", s)
	}
	return finite(f)
}

func finite(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("expected a finite number, got %v", f)
	}
	return f, nil
}

func toBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil, fmt.Errorf("expected a boolean, got %q", b)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("expected a boolean, got %T", v)
}

// toDate validates the value as a date or timestamp. The original string is
// bound so the database applies its own parsing and time zone rules.
func toDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a date string, got %T", v)
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("expected a date (YYYY-MM-DD or RFC 3339), got %q", s)
}

func toText(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	}
	return nil, fmt.Errorf("expected a text value, got %T", v)
}
