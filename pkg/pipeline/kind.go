package pipeline

import (
	"context"
	"errors"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// ErrorKind classifies failures of a year pipeline.
type ErrorKind int

const (
	NoError ErrorKind = iota
	CatalogUnavailable
	NotFound
	Malformed
	Exhausted
	Corrupt
	UnsupportedVersion
	ConstraintViolation
	Config
	Cancelled
	Internal
)

var kindNames = []string{
	"",
	"catalog_unavailable",
	"not_found",
	"malformed",
	"exhausted",
	"corrupt",
	"unsupported_version",
	"constraint_violation",
	"config",
	"cancelled",
	"internal",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "internal"
	}
	return kindNames[k]
}

// MarshalText makes kinds readable in the JSON report.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var codeKinds = map[gn.ErrorCode]ErrorKind{
	errcode.CatalogUnavailableError:        CatalogUnavailable,
	errcode.CatalogFileError:               CatalogUnavailable,
	errcode.FetchNotFoundError:             NotFound,
	errcode.FetchMalformedError:            Malformed,
	errcode.FetchExhaustedError:            Exhausted,
	errcode.ExtractCorruptError:            Corrupt,
	errcode.ExtractReadError:               Corrupt,
	errcode.ExtractUnsupportedVersionError: UnsupportedVersion,
	errcode.ImportConstraintViolationError: ConstraintViolation,
	errcode.ConfigError:                    Config,
	errcode.MissingToolError:               Config,
	errcode.PipelineCancelledError:         Cancelled,
	errcode.PipelineYearNotListedError:     NotFound,
	errcode.PipelineDuplicateTableError:    Corrupt,
}

// KindOf finds the ErrorKind of an error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return NoError
	}

	var gnErr *gn.Error
	if errors.As(err, &gnErr) {
		if k, ok := codeKinds[gnErr.Code]; ok {
			return k
		}
		if gnErr.Err != nil && errors.Is(gnErr.Err, context.Canceled) {
			return Cancelled
		}
		return Internal
	}

	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	return Internal
}
