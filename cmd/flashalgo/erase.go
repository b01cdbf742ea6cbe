package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var eraseChip bool

var eraseCmd = &cobra.Command{
	Use:   "erase [address size]",
	Short: "Erase sectors or the whole chip",
	Long: "Erases every sector overlapping [address, address+size), or the whole chip with --chip.\n" +
		"Numbers may be given in decimal or with a 0x prefix.",
	Args: func(cmd *cobra.Command, args []string) error {
		if eraseChip {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(e *env) error {
			l := e.loader(withProgress(cmd))
			if eraseChip {
				return l.EraseChip(cmd.Context())
			}
			addr, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			size, err := parseUint32(args[1])
			if err != nil {
				return err
			}
			if size == 0 {
				return fmt.Errorf("erase size must not be zero")
			}
			if err := l.Erase(cmd.Context(), addr, int(size)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "erased 0x%08X - 0x%08X\n", addr, uint64(addr)+uint64(size)-1)
			return nil
		})
	},
}

func init() {
	eraseCmd.Flags().BoolVar(&eraseChip, "chip", false, "erase the whole chip")
	rootCmd.AddCommand(eraseCmd)
}
