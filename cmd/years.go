/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/gnames/cinder/internal/iocatalog"
	"github.com/gnames/cinder/pkg/lifecycle"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

// getYearsCmd returns the years command.
func getYearsCmd() *cobra.Command {
	var asYAML bool

	yearsCmd := &cobra.Command{
		Use:   "years",
		Short: "List yearly snapshots of the catalog",
		Long: `List years that the catalog provides, with locations of snapshots
and their documentation.

The YAML output can be saved, edited and used as a catalog with
--catalog-file, for example to pin snapshot locations or to work
without access to the catalog page.

Examples:
  cinder years
  cinder years --yaml > years.yaml
  cinder --catalog-file years.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runYears(cmd.Context(), os.Stdout, asYAML)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	yearsCmd.Flags().BoolVar(&asYAML, "yaml", false,
		"print years in years.yaml format")

	return yearsCmd
}

func runYears(ctx context.Context, w io.Writer, asYAML bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	yds, err := newCatalog(cfg).ListYears(ctx)
	if err != nil {
		return err
	}

	if asYAML {
		data, err := iocatalog.Marshal(yds)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	printYears(w, yds)
	return nil
}

func printYears(w io.Writer, yds []lifecycle.YearDescriptor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tSNAPSHOT\tDOCS")
	for _, v := range yds {
		docs := "-"
		if v.HasDocs() {
			docs = v.DocsURL
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", v.Year, v.SnapshotURL, docs)
	}
	_ = tw.Flush()
}
