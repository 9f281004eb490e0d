// Package iocatalog reads the list of yearly snapshots from the IPEDS
// download page or from a years.yaml file.
package iocatalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type htmlCatalog struct {
	url    string
	client *retryablehttp.Client
}

// NewHTML creates a catalog that scrapes the page with links to yearly
// Access databases.
func NewHTML(indexURL string) lifecycle.Catalog {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = time.Minute
	client.Logger = slog.Default()
	return &htmlCatalog{url: indexURL, client: client}
}

// ListYears downloads the index page and finds snapshot links in
// the 'ipeds-table' tables.
func (c *htmlCatalog) ListYears(
	ctx context.Context,
) ([]lifecycle.YearDescriptor, error) {
	base, err := url.Parse(c.url)
	if err != nil {
		return nil, CatalogUnavailableError(c.url, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, CatalogUnavailableError(c.url, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, CatalogUnavailableError(c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("HTTP %d", resp.StatusCode)
		return nil, CatalogUnavailableError(c.url, err)
	}

	res, err := parseIndex(resp.Body, base)
	if err != nil {
		return nil, CatalogUnavailableError(c.url, err)
	}
	slog.Info("Read catalog", "url", c.url, "years", len(res))
	return res, nil
}

type link struct {
	text string
	href string
}

type candidate struct {
	yd   lifecycle.YearDescriptor
	rank int
}

// parseIndex finds links to zip archives inside tables with the
// 'ipeds-table' class. A documentation link from the same table row
// becomes DocsURL of the year.
func parseIndex(r io.Reader, base *url.URL) ([]lifecycle.YearDescriptor, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	years := make(map[int]candidate)
	var order []int

	for _, tbl := range findAll(doc, atom.Table) {
		if !hasClass(tbl, "ipeds-table") {
			continue
		}
		for _, row := range rows(tbl) {
			snap, docs := rowLinks(row)
			for _, l := range snap {
				yd, ok := descriptor(l, base)
				if !ok {
					continue
				}
				if len(docs) > 0 {
					yd.DocsURL = resolve(base, docs[0].href)
				}
				cand := candidate{yd: yd, rank: releaseRank(l.text + " " + l.href)}
				old, exists := years[yd.Year]
				if !exists {
					order = append(order, yd.Year)
				}
				if !exists || cand.rank > old.rank {
					years[yd.Year] = cand
				}
			}
		}
	}

	res := make([]lifecycle.YearDescriptor, 0, len(order))
	for _, y := range order {
		res = append(res, years[y].yd)
	}
	return res, nil
}

func descriptor(l link, base *url.URL) (lifecycle.YearDescriptor, bool) {
	var res lifecycle.YearDescriptor
	year, ok := parseYear(l.text)
	if !ok {
		year, ok = parseYear(l.href)
	}
	if !ok {
		slog.Warn("Skipping catalog entry without year",
			"text", l.text, "href", l.href)
		return res, false
	}

	u := resolve(base, l.href)
	if u == "" {
		slog.Warn("Skipping catalog entry with bad URL",
			"year", year, "href", l.href)
		return res, false
	}
	res.Year = year
	res.SnapshotURL = u
	return res, true
}

func resolve(base *url.URL, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || href == "" {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// rows returns table rows. If a table has no rows, the table itself
// is treated as one row.
func rows(tbl *html.Node) []*html.Node {
	res := findAll(tbl, atom.Tr)
	if len(res) == 0 {
		return []*html.Node{tbl}
	}
	return res
}

// rowLinks splits links of a row into snapshot and documentation
// links.
func rowLinks(row *html.Node) (snap, docs []link) {
	for _, a := range findAll(row, atom.A) {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		l := link{text: strings.TrimSpace(text(a)), href: href}
		isZip := strings.HasSuffix(strings.ToLower(href), ".zip")
		switch {
		case isDocs(l.text, l.href):
			docs = append(docs, l)
		case isZip:
			snap = append(snap, l)
		}
	}
	return snap, docs
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var res []*html.Node
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.DataAtom == a {
			res = append(res, d)
		}
	}
	return res
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

func attr(n *html.Node, key string) string {
	for _, v := range n.Attr {
		if v.Key == key {
			return v.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	return sb.String()
}
