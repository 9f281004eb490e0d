package iocatalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		msg, s string
		year   int
		ok     bool
	}{
		{"plain", "IPEDS 2004", 2004, true},
		{"academic", "2004-05 Access Database", 2004, true},
		{"file name", "/files/IPEDS_2019-20_Final.zip", 2019, true},
		{"compact", "IPEDS200405.zip", 2004, true},
		{"compact wrong pair", "IPEDS200499.zip", 0, false},
		{"skip small numbers", "v12 2010", 2010, true},
		{"out of range", "1975", 0, false},
		{"no digits", "Access database", 0, false},
	}

	for _, v := range tests {
		year, ok := parseYear(v.s)
		assert.Equal(t, v.ok, ok, v.msg)
		assert.Equal(t, v.year, year, v.msg)
	}
}

func TestReleaseRank(t *testing.T) {
	assert.Greater(t, releaseRank("2004-05 Final"), releaseRank("2004-05"))
	assert.Greater(t, releaseRank("2004-05"), releaseRank("Provisional 2004"))
}

func TestIsDocs(t *testing.T) {
	assert.True(t, isDocs("Documentation", "/a.zip"))
	assert.True(t, isDocs("Tables", "/IPEDS_2004_Doc.zip"))
	assert.True(t, isDocs("Guide", "/guide.pdf"))
	assert.False(t, isDocs("2004-05", "/IPEDS_2004-05.zip"))

	// folders do not make a snapshot into documentation
	assert.False(t, isDocs("2004-05", "/docs/IPEDS_2004-05.zip"))
	assert.False(t, isDocs("2004-05", "/documents/2004/IPEDS_2004-05.zip"))
	assert.False(t, isDocs("2004-05",
		"https://nces.ed.gov/ipeds/docs/IPEDS_2004-05.zip?v=docx"))
	assert.True(t, isDocs("2004-05", "/files/IPEDS_2004-05_Doc.zip?v=1"))
}

func TestResolve(t *testing.T) {
	base, err := url.Parse("https://nces.ed.gov/ipeds/download/")
	require.NoError(t, err)

	tests := []struct {
		msg, href, res string
	}{
		{"relative", "files/a.zip", "https://nces.ed.gov/ipeds/download/files/a.zip"},
		{"absolute path", "/a.zip", "https://nces.ed.gov/a.zip"},
		{"http", "http://example.org/a.zip", "http://example.org/a.zip"},
		{"file", "file:///etc/passwd.zip", ""},
		{"ftp", "ftp://example.org/a.zip", ""},
		{"javascript", "javascript:void(0)", ""},
		{"empty", "", ""},
	}
	for _, v := range tests {
		assert.Equal(t, v.res, resolve(base, v.href), v.msg)
	}
}
