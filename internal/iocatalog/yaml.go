package iocatalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"github.com/gnames/cinder/pkg/lifecycle"
	"gopkg.in/yaml.v3"
)

// YearsFile is the content of a years.yaml catalog.
type YearsFile struct {
	Years []lifecycle.YearDescriptor `yaml:"years"`
}

type fileCatalog struct {
	path string
}

// NewFile creates a catalog from a years.yaml file.
func NewFile(path string) lifecycle.Catalog {
	return &fileCatalog{path: path}
}

// ListYears reads the file on every call, so changes to the file are
// picked up by the next run.
func (c *fileCatalog) ListYears(
	ctx context.Context,
) ([]lifecycle.YearDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, CatalogFileError(c.path, err)
	}

	var yf YearsFile
	if err = yaml.Unmarshal(data, &yf); err != nil {
		return nil, CatalogFileError(c.path, err)
	}

	seen := make(map[int]struct{})
	res := make([]lifecycle.YearDescriptor, 0, len(yf.Years))
	for _, v := range yf.Years {
		if err = validate(v); err != nil {
			slog.Warn("Skipping catalog entry", "file", c.path, "error", err)
			continue
		}
		if _, ok := seen[v.Year]; ok {
			slog.Warn("Skipping duplicate year", "file", c.path, "year", v.Year)
			continue
		}
		seen[v.Year] = struct{}{}
		res = append(res, v)
	}
	return res, nil
}

func validate(yd lifecycle.YearDescriptor) error {
	if yd.Year < minYear || yd.Year > maxYear {
		return fmt.Errorf("year %d is out of range %d-%d",
			yd.Year, minYear, maxYear)
	}
	u, err := url.Parse(yd.SnapshotURL)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("year %d: bad snapshot URL '%s'", yd.Year, yd.SnapshotURL)
	}
	if yd.DocsURL == "" {
		return nil
	}
	u, err = url.Parse(yd.DocsURL)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("year %d: bad docs URL '%s'", yd.Year, yd.DocsURL)
	}
	return nil
}

// Marshal converts descriptors to the years.yaml format, sorted by
// year.
func Marshal(yds []lifecycle.YearDescriptor) ([]byte, error) {
	yf := YearsFile{Years: slices.Clone(yds)}
	slices.SortFunc(yf.Years, func(a, b lifecycle.YearDescriptor) int {
		return a.Year - b.Year
	})
	return yaml.Marshal(yf)
}

// Filter keeps descriptors of the given years. Empty years keep
// everything.
func Filter(yds []lifecycle.YearDescriptor, years []int) []lifecycle.YearDescriptor {
	if len(years) == 0 {
		return yds
	}
	var res []lifecycle.YearDescriptor
	for _, v := range yds {
		if slices.Contains(years, v.Year) {
			res = append(res, v)
		}
	}
	return res
}
