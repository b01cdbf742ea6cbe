package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-flashalgo/algo"
	"github.com/moffa90/go-flashalgo/board"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the device description and identify the chip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(e *env) error {
			out := cmd.OutOrStdout()
			d := e.dev
			fmt.Fprintf(out, "Device:        %s (%s)\n", d.Name, d.Type)
			fmt.Fprintf(out, "Address range: 0x%08X - 0x%08X\n", d.Base, d.End()-1)
			fmt.Fprintf(out, "Size:          %d KiB\n", d.Size>>10)
			fmt.Fprintf(out, "Page size:     %d\n", d.PageSize)
			fmt.Fprintf(out, "Erased value:  0x%02X\n", d.ErasedValue)
			fmt.Fprintf(out, "Timeouts:      program %s, erase %s\n", d.ProgramTimeout, d.EraseTimeout)
			for _, r := range d.Sectors {
				fmt.Fprintf(out, "Sectors:       %d bytes from offset 0x%08X\n", r.Size, r.Start)
			}

			if e.sim != nil {
				fmt.Fprintf(out, "Chip:          simulated, image %s\n", simPath)
				return nil
			}

			if ports, err := board.Consoles(); err == nil {
				fmt.Fprintf(out, "Serial ports:  %v\n", ports)
			}

			if e.entry.Init(d.Base, clockHz, uint32(algo.FuncVerify)) != algo.StatusOK {
				return e.entry.LastError()
			}
			defer e.entry.UnInit(uint32(algo.FuncVerify))

			f := e.board.Flash()
			sr, err := f.ReadStatusRegister()
			if err != nil {
				return err
			}
			pr := f.Params()
			fmt.Fprintf(out, "Chip:          %s, JEDEC ID %X, %d KiB\n", pr.Name, f.ID(), pr.Size>>10)
			fmt.Fprintf(out, "Status:        %s\n", sr)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
