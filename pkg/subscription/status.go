package subscription

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
)

// Status is the subscription tier of a caller.
type Status string

const (
	StatusFree Status = "free"
	StatusPro  Status = "pro"
)

func (s Status) IsPro() bool {
	return s == StatusPro
}

func (s Status) String() string {
	return string(s)
}

// StatusOf maps a normalised flag to a Status.
func StatusOf(pro bool) Status {
	if pro {
		return StatusPro
	}
	return StatusFree
}

// Normalize converts a raw stored flag into a bool. Booleans are taken as is,
// numbers are true when non-zero and strings are true when they read
// "true", "t", "1", "yes", "y" or "on" in any case. Nil and any other value
// are false.
func Normalize(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return truthy(v)
	case []byte:
		return truthy(string(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f != 0
		}
		return truthy(v.String())
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return false
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return truthy(rv.String())
	default:
		return false
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y", "on":
		return true
	default:
		return false
	}
}
