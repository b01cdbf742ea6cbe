package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-flashalgo/algo"
)

var traceJSON bool

var traceCmd = &cobra.Command{
	Use:   "trace <file.cbor>",
	Short: "Print a fault trace written with --trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open trace: %w", err)
		}
		defer func() { _ = f.Close() }()

		faults, err := algo.ReadTrace(f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if traceJSON {
			enc := json.NewEncoder(out)
			for _, fault := range faults {
				if err := enc.Encode(fault); err != nil {
					return err
				}
			}
			return nil
		}
		for _, fault := range faults {
			fmt.Fprintln(out, fault)
		}
		fmt.Fprintf(out, "%d faults\n", len(faults))
		return nil
	},
}

func init() {
	traceCmd.Flags().BoolVar(&traceJSON, "json", false, "print one JSON object per fault")
	rootCmd.AddCommand(traceCmd)
}
