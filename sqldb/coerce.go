package sqldb

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tinywasm/record"
)

// dateLayouts are tried in order when parsing date-typed strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerce converts a raw driver or caller value into the program
// representation of the given field type. nil passes through unchanged;
// coercion is idempotent, so coercing an already-coerced value is safe.
func coerce(t record.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case record.TypeText:
		return coerceText(v)
	case record.TypeInt64:
		return coerceInt64(v)
	case record.TypeFloat64:
		return coerceFloat64(v)
	case record.TypeBool:
		return coerceBool(v)
	case record.TypeBlob:
		return coerceBlob(v)
	case record.TypeDate:
		return coerceDate(v)
	}
	return v, nil
}

func coerceText(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case bool:
		return strconv.FormatBool(s), nil
	case time.Time:
		return s.Format(time.RFC3339), nil
	}
	if f, ok := asFloat(v); ok {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10), nil
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return nil, errors.Errorf("cannot coerce %T to text", v)
}

func coerceInt64(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, errors.Wrapf(err, "coerce %q to int", n)
	case []byte:
		return coerceInt64(string(n))
	}
	if f, ok := asFloat(v); ok {
		return int64(f), nil
	}
	return nil, errors.Errorf("cannot coerce %T to int", v)
}

func coerceFloat64(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, errors.Wrapf(err, "coerce %q to float", n)
	case []byte:
		return coerceFloat64(string(n))
	}
	if f, ok := asFloat(v); ok {
		return f, nil
	}
	return nil, errors.Errorf("cannot coerce %T to float", v)
}

func coerceBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "t", "true", "yes", "on":
			return true, nil
		case "0", "f", "false", "no", "off", "":
			return false, nil
		}
		return nil, errors.Errorf("cannot coerce %q to bool", b)
	case []byte:
		return coerceBool(string(b))
	}
	if f, ok := asFloat(v); ok {
		return f != 0, nil
	}
	return nil, errors.Errorf("cannot coerce %T to bool", v)
}

func coerceBlob(v any) (any, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, errors.Errorf("cannot coerce %T to blob", v)
}

func coerceDate(v any) (any, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, d); err == nil {
				return ts, nil
			}
		}
		return nil, errors.Errorf("cannot parse %q as date", d)
	case []byte:
		return coerceDate(string(d))
	case int64:
		return time.Unix(d, 0).UTC(), nil
	}
	return nil, errors.Errorf("cannot coerce %T to date", v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
