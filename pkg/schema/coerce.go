package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gnames/gnlib"
)

// dateLayouts are tried in order when a date comes as a string.
// The first one is the format of mdb-export.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/06 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
}

var errUnsupported = errors.New("unsupported value")

// Coerce converts a value read from a snapshot to the Go type that
// corresponds to a destination column type: int64, float64, string,
// bool or time.Time. Nil stays nil, empty strings become nil for all
// types except Text.
func Coerce(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if s, ok := v.(string); ok && t != Text {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		v = s
	}

	var res any
	var err error
	switch t {
	case Text:
		res = toText(v)
	case Integer:
		res, err = toInteger(v)
	case Real:
		res, err = toReal(v)
	case Boolean:
		res, err = toBoolean(v)
	case Date:
		res, err = toDate(v)
	default:
		res = toText(v)
	}
	if err != nil {
		return nil, CoerceError(v, t, err)
	}
	return res, nil
}

// CleanText makes a string acceptable for PostgreSQL text: invalid
// UTF-8 is fixed and NUL bytes are removed.
func CleanText(s string) string {
	s = gnlib.FixUtf8(s)
	return strings.ReplaceAll(s, "\x00", "")
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return CleanText(x)
	case time.Time:
		return x.Format(dateLayouts[0])
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return CleanText(fmt.Sprint(x))
	}
}

func toInteger(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float64:
		return wholeFloat(x)
	case float32:
		return wholeFloat(float64(x))
	case string:
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, err
		}
		return wholeFloat(f)
	}
	return 0, errUnsupported
}

func wholeFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) ||
		f > math.MaxInt64 || f < math.MinInt64 {
		return 0, errors.New("not a whole number")
	}
	return int64(f), nil
}

func toReal(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	i, err := toInteger(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

func toBoolean(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(x) {
		case "1", "-1", "true", "t", "yes", "y":
			return true, nil
		case "0", "false", "f", "no", "n":
			return false, nil
		}
		return false, errors.New("not a boolean")
	}
	i, err := toInteger(v)
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

func toDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errors.New("unknown date format")
	}
	return time.Time{}, errUnsupported
}
