package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// maxIdentLen is the PostgreSQL limit for identifiers.
const maxIdentLen = 63

// SourceYearColumn is added to every destination table. It keeps the
// academic year a row was imported from.
const SourceYearColumn = "source_year"

// LogicalName converts a table name from a snapshot into a destination
// table name. Snapshot table names carry the year they belong to
// (HD2004, IC2004_AY, SFA0405_P1, Tables04). If stripYear is true, the
// year token is removed, so the same table from different years lands
// in the same destination table.
func LogicalName(source string, stripYear bool) string {
	s := strings.ToLower(strings.TrimSpace(source))
	if stripYear {
		s = removeYearToken(s)
	}
	s = sanitize(s)
	if s == "" {
		s = "t"
	}
	if IsBookkeeping(s) {
		s = "src_" + s
	}
	return s
}

// ColumnName converts a column name from a snapshot into a destination
// column name.
func ColumnName(source string) string {
	s := sanitize(strings.ToLower(strings.TrimSpace(source)))
	if s == "" {
		s = "col"
	}
	if s == SourceYearColumn {
		s = "src_" + s
	}
	return s
}

// Normalize sets destination names of a table and its columns.
// Column names that collide after sanitizing get numeric suffixes.
func Normalize(t *Table, stripYear bool) {
	t.Name = LogicalName(t.Source, stripYear)

	seen := make(map[string]struct{}, len(t.Columns))
	for i := range t.Columns {
		src := t.Columns[i].Source
		if src == "" {
			src = t.Columns[i].Name
			t.Columns[i].Source = src
		}
		name := ColumnName(src)
		base := name
		for n := 2; ; n++ {
			if _, ok := seen[name]; !ok {
				break
			}
			name = truncate(fmt.Sprintf("%s_%d", base, n))
		}
		seen[name] = struct{}{}
		t.Columns[i].Name = name
	}
}

// removeYearToken removes the first run of 2, 4, 6 or 8 digits that
// follows a letter. The rest of the name is kept.
func removeYearToken(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if !unicode.IsDigit(rs[i]) {
			continue
		}
		j := i
		for j < len(rs) && unicode.IsDigit(rs[j]) {
			j++
		}
		l := j - i
		if i > 0 && unicode.IsLetter(rs[i-1]) && l%2 == 0 && l <= 8 {
			return string(rs[:i]) + string(rs[j:])
		}
		i = j
	}
	return s
}

func sanitize(s string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII &&
			(unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(r)
			underscore = false
		default:
			if !underscore {
				sb.WriteByte('_')
				underscore = true
			}
		}
	}
	res := strings.Trim(sb.String(), "_")
	if res != "" && unicode.IsDigit(rune(res[0])) {
		res = "t_" + res
	}
	return truncate(res)
}

func truncate(s string) string {
	if len(s) > maxIdentLen {
		return s[:maxIdentLen]
	}
	return s
}
