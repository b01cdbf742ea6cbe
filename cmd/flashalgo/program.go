package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-flashalgo/image"
	"github.com/moffa90/go-flashalgo/loader"
)

var (
	imageBase    string
	programChip  bool
	programNoVfy bool
	quiet        bool
)

var programCmd = &cobra.Command{
	Use:   "program <image>",
	Short: "Erase, program and verify a HEX or binary image",
	Long: "Downloads an Intel HEX (.hex, .ihex) or raw binary image. Binaries are placed at\n" +
		"--base, which defaults to the device base address.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(e *env) error {
			img, err := loadImage(e, args[0])
			if err != nil {
				return err
			}
			l := e.loader(
				withProgress(cmd),
				loader.WithChipErase(programChip),
				loader.WithVerify(!programNoVfy),
			)
			if err := l.Download(cmd.Context(), img); err != nil {
				return err
			}
			lo, hi := img.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "programmed %d bytes at 0x%08X - 0x%08X\n", img.Size(), lo, hi-1)
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Compare the chip contents with an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(e *env) error {
			img, err := loadImage(e, args[0])
			if err != nil {
				return err
			}
			if err := e.loader(withProgress(cmd)).Verify(cmd.Context(), img); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d bytes\n", img.Size())
			return nil
		})
	},
}

func loadImage(e *env, path string) (*image.Image, error) {
	base := e.dev.Base
	if imageBase != "" {
		b, err := parseUint32(imageBase)
		if err != nil {
			return nil, err
		}
		base = b
	}
	img, err := image.Parse(path, base)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	return img, nil
}

// withProgress prints one line per phase change and a final percentage.
func withProgress(cmd *cobra.Command) loader.Option {
	if quiet {
		return loader.WithProgressCallback(nil)
	}
	phase := ""
	return loader.WithProgressCallback(func(p loader.Progress) {
		if p.Phase == phase {
			return
		}
		phase = p.Phase
		fmt.Fprintf(cmd.ErrOrStderr(), "%-12s %5.1f%%  %s\n", p.Phase, p.Percentage, p.ElapsedTime.Round(time.Millisecond))
	})
}

func init() {
	for _, c := range []*cobra.Command{programCmd, verifyCmd} {
		c.Flags().StringVar(&imageBase, "base", "", "load address of binary images")
		c.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not report progress")
		rootCmd.AddCommand(c)
	}
	programCmd.Flags().BoolVar(&programChip, "chip-erase", false, "erase the whole chip instead of the touched sectors")
	programCmd.Flags().BoolVar(&programNoVfy, "no-verify", false, "skip the verify phase")
}
