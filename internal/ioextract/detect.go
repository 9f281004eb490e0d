package ioextract

import (
	"bytes"
	"errors"
	"io"
	"os"
)

type format int

const (
	formatUnknown format = iota
	formatZip
	formatJet
	formatSQLite
)

func (f format) String() string {
	switch f {
	case formatZip:
		return "zip"
	case formatJet:
		return "jet"
	case formatSQLite:
		return "sqlite"
	}
	return "unknown"
}

const (
	jetVersionOffset = 0x14
	headerSize       = 0x20
)

var (
	zipMagic    = []byte("PK\x03\x04")
	sqliteMagic = []byte("SQLite format 3\x00")
	jetMagic    = []byte("Standard Jet DB")
	aceMagic    = []byte("Standard ACE DB")
)

// jetVersions are known values of the version byte: Jet3, Jet4,
// ACE12, ACE14, ACE15, ACE16/17.
var jetVersions = map[byte]string{
	0x00: "Jet3",
	0x01: "Jet4",
	0x02: "ACE12",
	0x03: "ACE14",
	0x04: "ACE15",
	0x05: "ACE16",
}

// detect reads the header of a file to find its format.
func detect(path string) (format, error) {
	f, err := os.Open(path)
	if err != nil {
		return formatUnknown, CorruptError(path, "cannot open file", err)
	}
	defer f.Close()

	hdr := make([]byte, headerSize)
	n, err := io.ReadFull(f, hdr)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return formatUnknown, CorruptError(path, "cannot read header", err)
	}
	return detectHeader(path, hdr[:n])
}

func detectHeader(path string, hdr []byte) (format, error) {
	switch {
	case bytes.HasPrefix(hdr, zipMagic):
		return formatZip, nil
	case bytes.HasPrefix(hdr, sqliteMagic):
		return formatSQLite, nil
	case len(hdr) >= 4+len(jetMagic) &&
		(bytes.Equal(hdr[4:4+len(jetMagic)], jetMagic) ||
			bytes.Equal(hdr[4:4+len(aceMagic)], aceMagic)):
		if len(hdr) <= jetVersionOffset {
			return formatUnknown, CorruptError(path, "truncated Jet header", nil)
		}
		v := hdr[jetVersionOffset]
		if _, ok := jetVersions[v]; !ok {
			return formatUnknown, UnsupportedVersionError(path, v)
		}
		return formatJet, nil
	case len(hdr) == 0:
		return formatUnknown, CorruptError(path, "empty file", nil)
	}
	return formatUnknown, CorruptError(path, "unknown file format", nil)
}
