package schema

import (
	"regexp"
	"strings"
)

// sizeRx removes size and precision, as in 'Text (255)' or
// 'NUMERIC(10,2)'.
var sizeRx = regexp.MustCompile(`\s*\(.*\)\s*$`)

var nativeTypes = map[string]Type{
	// Access (mdb-schema access backend)
	"byte":               Integer,
	"integer":            Integer,
	"long integer":       Integer,
	"autonumber":         Integer,
	"big integer":        Integer,
	"single":             Real,
	"double":             Real,
	"currency":           Real,
	"numeric":            Real,
	"decimal":            Real,
	"text":               Text,
	"memo/hyperlink":     Text,
	"memo":               Text,
	"hyperlink":          Text,
	"boolean":            Boolean,
	"yes/no":             Boolean,
	"datetime":           Date,
	"date/time":          Date,
	"date/time extended": Date,
	"complex":            Text,
	"replication id":     Text,
	"ole":                Text,
	"binary":             Text,
	"attachment":         Text,
	"calculated":         Text,
	"unknown 0x00":       Text,
	"long text":          Text,
	"short text":         Text,
	"large number":       Integer,
	// SQLite and generic SQL declarations
	"double precision":   Real,
	"real":               Real,
	"float":              Real,
	"int":                Integer,
	"int2":               Integer,
	"int4":               Integer,
	"int8":               Integer,
	"smallint":           Integer,
	"bigint":             Integer,
	"tinyint":            Integer,
	"bool":               Boolean,
	"varchar":            Text,
	"character varying":  Text,
	"char":               Text,
	"character":          Text,
	"clob":               Text,
	"string":             Text,
	"date":               Date,
	"timestamp":          Date,
}

// ambiguous types are mapped to text, but the loss of meaning is
// reported.
var ambiguous = map[string]struct{}{
	"complex":        {},
	"replication id": {},
	"ole":            {},
	"binary":         {},
	"attachment":     {},
	"calculated":     {},
	"unknown 0x00":   {},
}

// MapNative converts a declared type of a snapshot column to a
// destination type. The mapping is total: unknown or ambiguous types
// become Text and ok is false, so the caller can record a warning.
func MapNative(native string) (Type, bool) {
	s := strings.ToLower(strings.TrimSpace(native))
	s = sizeRx.ReplaceAllString(s, "")
	if s == "" {
		return Text, false
	}

	if t, found := nativeTypes[s]; found {
		_, amb := ambiguous[s]
		return t, !amb
	}

	// SQLite type affinity rules for declared types that are not in
	// the table.
	switch {
	case strings.Contains(s, "int"):
		return Integer, true
	case strings.Contains(s, "char"), strings.Contains(s, "clob"),
		strings.Contains(s, "text"):
		return Text, true
	case strings.Contains(s, "real"), strings.Contains(s, "floa"),
		strings.Contains(s, "doub"):
		return Real, true
	case strings.HasPrefix(s, "timestamp"):
		return Date, true
	}
	return Text, false
}
