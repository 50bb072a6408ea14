package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rl1809/stock-lookup/internal/core/service"
)

// get prints one record for a single SKU, or the batch result array otherwise.
var getCmd = &cobra.Command{
	Use:   "get SKU...",
	Short: "Look up one or more SKUs and print the result as JSON",
	Args:  cobra.RangeArgs(1, service.MaxBatchSize),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if len(args) == 1 {
			record, err := a.lookup.GetBySKU(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return enc.Encode(record)
		}

		results, err := a.lookup.GetBySKUs(cmd.Context(), args)
		if err != nil {
			return err
		}
		return enc.Encode(results)
	},
}
