package host

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Hosts disagree on scalar types: JS numbers arrive as float64, COM variants
// as sized integers, and some hosts stringify everything. The As* helpers
// coerce a settled value to the Go type a call site expects.

// AsString coerces v to a string. nil becomes "".
func AsString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case bool:
		return strconv.FormatBool(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	if n, err := AsInt(v); err == nil {
		return strconv.Itoa(n), nil
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("host value %T is not a string", v)
}

// AsInt coerces v to an int. Fractional floats are rejected.
func AsInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("host value %d overflows int", n)
		}
		return int(n), nil
	case float32:
		return AsInt(float64(n))
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("host value %v is not an integer", n)
		}
		return int(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("host value %q is not an integer: %w", n, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("host value %T is not an integer", v)
}

// AsBool coerces v to a bool. Numbers are true when non-zero.
func AsBool(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("host value %q is not a boolean: %w", b, err)
		}
		return parsed, nil
	}
	n, err := AsInt(v)
	if err != nil {
		return false, fmt.Errorf("host value %T is not a boolean", v)
	}
	return n != 0, nil
}

// timeLayouts are the date renderings seen from the hosts: ISO strings from
// the browser and locale-formatted VT_DATE strings from COM.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
}

// AsTime coerces v to a time. Numbers are Unix milliseconds.
func AsTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("host value %q is not a date", t)
	}
	return time.Time{}, fmt.Errorf("host value %T is not a date", v)
}

// AsObject asserts that v is a host object.
func AsObject(v any) (Object, error) {
	obj, ok := v.(Object)
	if !ok || obj == nil {
		return nil, fmt.Errorf("host value %T is not an object", v)
	}
	return obj, nil
}

// GetString reads a string property through b.
func GetString(ctx context.Context, b Bridge, obj Object, key string) (string, error) {
	v, err := b.Get(ctx, obj, key)
	if err != nil {
		return "", err
	}
	return AsString(v)
}

// GetInt reads an integer property through b.
func GetInt(ctx context.Context, b Bridge, obj Object, key string) (int, error) {
	v, err := b.Get(ctx, obj, key)
	if err != nil {
		return 0, err
	}
	return AsInt(v)
}

// GetBool reads a boolean property through b.
func GetBool(ctx context.Context, b Bridge, obj Object, key string) (bool, error) {
	v, err := b.Get(ctx, obj, key)
	if err != nil {
		return false, err
	}
	return AsBool(v)
}

// GetTime reads a date property through b.
func GetTime(ctx context.Context, b Bridge, obj Object, key string) (time.Time, error) {
	v, err := b.Get(ctx, obj, key)
	if err != nil {
		return time.Time{}, err
	}
	return AsTime(v)
}

// GetObject reads an object-valued property through b.
func GetObject(ctx context.Context, b Bridge, obj Object, key string) (Object, error) {
	v, err := b.Get(ctx, obj, key)
	if err != nil {
		return nil, err
	}
	return AsObject(v)
}

// InvokeString calls a string-returning method through b.
func InvokeString(ctx context.Context, b Bridge, obj Object, method string, args ...any) (string, error) {
	v, err := b.Invoke(ctx, obj, method, args...)
	if err != nil {
		return "", err
	}
	return AsString(v)
}

// InvokeInt calls an integer-returning method through b.
func InvokeInt(ctx context.Context, b Bridge, obj Object, method string, args ...any) (int, error) {
	v, err := b.Invoke(ctx, obj, method, args...)
	if err != nil {
		return 0, err
	}
	return AsInt(v)
}

// InvokeBool calls a boolean-returning method through b.
func InvokeBool(ctx context.Context, b Bridge, obj Object, method string, args ...any) (bool, error) {
	v, err := b.Invoke(ctx, obj, method, args...)
	if err != nil {
		return false, err
	}
	return AsBool(v)
}

// InvokeObject calls an object-returning method through b.
func InvokeObject(ctx context.Context, b Bridge, obj Object, method string, args ...any) (Object, error) {
	v, err := b.Invoke(ctx, obj, method, args...)
	if err != nil {
		return nil, err
	}
	return AsObject(v)
}
