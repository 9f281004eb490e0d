package iocatalog

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const (
	minYear = 1980
	maxYear = 2099
)

var digitsRx = regexp.MustCompile(`\d+`)

// parseYear finds the academic year in a link text or a file name.
// It understands '2004', '2004-05' and '200405'.
func parseYear(s string) (int, bool) {
	for _, v := range digitsRx.FindAllString(s, -1) {
		switch len(v) {
		case 4:
			if y, ok := validYear(v); ok {
				return y, true
			}
		case 6, 8:
			y, ok := validYear(v[:4])
			if !ok {
				continue
			}
			next, _ := strconv.Atoi(v[4:6])
			if next == (y+1)%100 {
				return y, true
			}
		}
	}
	return 0, false
}

func validYear(s string) (int, bool) {
	y, err := strconv.Atoi(s)
	if err != nil || y < minYear || y > maxYear {
		return 0, false
	}
	return y, true
}

// releaseRank orders releases of the same year. Final data are
// preferred over provisional ones.
func releaseRank(s string) int {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "final"):
		return 2
	case strings.Contains(s, "provisional"):
		return 0
	default:
		return 1
	}
}

// isDocs decides if a link points to documentation rather than to a
// database. Only the link text and the file name are checked, folders
// of the link do not matter.
func isDocs(text, href string) bool {
	if strings.Contains(strings.ToLower(text), "doc") {
		return true
	}
	name := href
	if u, err := url.Parse(href); err == nil {
		name = u.Path
	}
	name = strings.ToLower(path.Base(name))
	if strings.Contains(name, "doc") {
		return true
	}
	switch path.Ext(name) {
	case ".pdf", ".xlsx", ".xls", ".docx":
		return true
	}
	return false
}
