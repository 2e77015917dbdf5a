package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upload a CSV file of assets",
		Long: `Upload a CSV file to the server's import endpoint.

Rows are upserted by asset_id. Row errors and out-of-bounds warnings are
printed after the summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := root.client().ImportCSV(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Successfully imported %d new and updated %d existing assets.\n", res.Created, res.Updated)
			for _, e := range res.Errors {
				fmt.Fprintln(out, "error:", e)
			}
			for _, w := range res.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
			return nil
		},
	}
}
