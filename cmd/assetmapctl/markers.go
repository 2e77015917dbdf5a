package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"assetmap/internal/mapview"
)

type markersOptions struct {
	condition string
	assetType string
	search    string
	json      bool
}

func newMarkersCmd(root *rootOptions) *cobra.Command {
	opts := &markersOptions{}

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Load the marker layer for a filter and print it",
		Long: `Load assets through the map controller and print the resulting markers.

Empty filter flags are omitted from the request, so running with no flags
loads every asset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarkers(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.condition, "condition", "", "filter by condition (good, moderate, poor)")
	cmd.Flags().StringVar(&opts.assetType, "asset-type", "", "filter by asset type")
	cmd.Flags().StringVar(&opts.search, "search", "", "substring of name or asset id")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print markers as JSON")
	return cmd
}

func runMarkers(cmd *cobra.Command, root *rootOptions, opts *markersOptions) error {
	out := cmd.OutOrStdout()
	label := &mapview.TextLabel{}

	ctl, err := mapview.New(mapview.Options{
		Source:     root.client(),
		CountLabel: label,
		Log:        root.logger(),
	})
	if err != nil {
		return err
	}

	form := url.Values{
		"condition":  {opts.condition},
		"asset_type": {opts.assetType},
		"search":     {opts.search},
	}
	if _, err := ctl.Submit(cmd.Context(), form); err != nil {
		fmt.Fprintln(out, label.Text())
		return err
	}

	markers := ctl.Layer().Markers()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(markers)
	}

	fmt.Fprintln(out, label.Text())
	if len(markers) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET ID\tLAT\tLNG\tCOLOUR")
	for _, m := range markers {
		fmt.Fprintf(tw, "%s\t%.5f\t%.5f\t%s\n", m.AssetID, m.Position.Lat, m.Position.Lng, m.Style.FillColor)
	}
	return tw.Flush()
}
