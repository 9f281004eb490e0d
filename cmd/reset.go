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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gnames/cinder/internal/iodb"
	"github.com/gnames/cinder/internal/ioschema"
	"github.com/gnames/gn"
	"github.com/spf13/cobra"
)

// getResetCmd returns the reset command.
func getResetCmd() *cobra.Command {
	var force, artifacts bool

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all tables of the database",
		Long: `Drop all tables of the destination database and create empty
bookkeeping tables. The next run imports every year again.

Downloaded snapshots are kept unless --artifacts is given.

Use --force to skip confirmation.

Examples:
  cinder reset
  cinder reset --force --artifacts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runReset(force, artifacts)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	resetCmd.Flags().BoolVarP(&force, "force", "f",
		false, "drop tables without confirmation")
	resetCmd.Flags().BoolVar(&artifacts, "artifacts",
		false, "remove downloaded snapshots too")

	return resetCmd
}

func runReset(force, artifacts bool) error {
	ctx := context.Background()

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	gn.Info("Connected to database <em>%s</em>", cfg.Database.Database)

	hasTables, err := op.HasTables(ctx)
	if err != nil {
		return err
	}

	if hasTables {
		if !force && !confirm() {
			gn.Info("Aborted. No changes made.")
			return nil
		}
		gn.Info("Dropping all existing tables...")
		if err = op.DropAllTables(ctx); err != nil {
			return err
		}
		gn.Info("All tables dropped")
	}

	if err = ioschema.NewManager(op).Create(ctx); err != nil {
		return err
	}

	if artifacts {
		if err = os.RemoveAll(cfg.OutDir); err != nil {
			return err
		}
		gn.Info("Removed snapshots from <em>%s</em>", cfg.OutDir)
	}
	return nil
}

func confirm() bool {
	gn.Warn("\nWarning: Database contains existing tables.")
	gn.Warn("Reset will drop ALL tables and data.")
	fmt.Print("\nDo you want to continue? (yes/no): ")

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		gn.Warn("Failed to read user input")
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y"
}
