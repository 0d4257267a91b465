package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/velofit/fitcheck/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <product-url>",
	Short: "Look up a product URL in the replacement-part catalog",
	Long:  "Normalizes the URL to its catalog key and prints the matching record, if any. Useful for debugging catalog coverage.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src catalog.Source
		switch {
		case cfg.Catalog.URL != "":
			src = catalog.NewHTTPSource(cfg.Catalog.URL)
		case cfg.Catalog.Path != "":
			src = catalog.NewFileSource(cfg.Catalog.Path)
		}
		ix := catalog.NewIndex(src)

		key := catalog.NormalizeKey(args[0])
		fmt.Printf("key: %s\n", key)

		rec, ok := ix.Lookup(cmd.Context(), key)
		if !ok {
			fmt.Println("no catalog match")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
