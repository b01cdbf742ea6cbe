package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-flashalgo/algo"
	"github.com/moffa90/go-flashalgo/board"
	"github.com/moffa90/go-flashalgo/driver"
	"github.com/moffa90/go-flashalgo/driver/memflash"
	"github.com/moffa90/go-flashalgo/flashdev"
	"github.com/moffa90/go-flashalgo/loader"
)

// Global flags
var (
	devicePath  string
	simPath     string
	clockHz     uint32
	consoleName string
	consoleBaud int
	tracePath   string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "flashalgo",
	Short:         "QSPI NOR flash programming algorithm",
	Long:          "Erase, program and verify a W25Q serial NOR flash through the flash algorithm entry points.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&devicePath, "device", "d", "", "device description (YAML); default STM32H743_W25Q256")
	pf.StringVar(&simPath, "sim", "", "use a simulated chip backed by this image file instead of hardware")
	pf.Uint32Var(&clockHz, "clock", uint32(loader.DefaultClock/physic.Hertz), "clock passed to Init, in Hz")
	pf.StringVar(&consoleName, "console", "", "diagnostic serial console, e.g. /dev/ttyUSB1")
	pf.IntVar(&consoleBaud, "baud", board.DefaultBaudRate, "diagnostic console baud rate")
	pf.StringVar(&tracePath, "trace", "", "write recorded faults to this CBOR file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log every entry point call")
}

// env is what a command runs against.
type env struct {
	dev    *flashdev.Device
	log    *slog.Logger
	ctrl   *algo.Controller
	entry  *algo.Entry
	board  *board.Board
	sim    *memflash.Chip
	closer []io.Closer
}

func setup(cmd *cobra.Command) (*env, error) {
	e := &env{dev: flashdev.Default()}
	if devicePath != "" {
		dev, err := flashdev.Parse(devicePath)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", devicePath, err)
		}
		e.dev = dev
	}

	var logOut io.Writer = cmd.ErrOrStderr()
	var console io.Writer
	if consoleName != "" {
		port, err := board.OpenConsole(consoleName, consoleBaud)
		if err != nil {
			return nil, err
		}
		e.closer = append(e.closer, port)
		console = port
		logOut = io.MultiWriter(logOut, port)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	e.log = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	var chip driver.Chip
	opts := []algo.Option{
		algo.WithLogger(e.log),
		algo.WithPageSize(int(e.dev.PageSize)),
	}
	if simPath != "" {
		sim, err := memflash.Open(simPath, e.dev.Size, e.dev.Sectors[0].Size,
			memflash.WithErasedValue(e.dev.ErasedValue))
		if err != nil {
			e.close()
			return nil, err
		}
		e.sim = sim
		e.closer = append(e.closer, sim)
		chip = sim
	} else {
		e.board = board.New(board.Config{
			Console:        console,
			Logger:         e.log,
			ProgramTimeout: e.dev.ProgramTimeout,
			EraseTimeout:   e.dev.EraseTimeout,
		})
		chip = e.board
		opts = append(opts, algo.WithBringUp(e.board))
	}

	e.ctrl = algo.New(chip, opts...)
	e.entry = algo.NewEntry(e.ctrl)
	return e, nil
}

func (e *env) loader(opts ...loader.Option) *loader.Loader {
	opts = append([]loader.Option{
		loader.WithLogger(e.log),
		loader.WithClock(physic.Frequency(clockHz) * physic.Hertz),
	}, opts...)
	return loader.New(e.entry, e.dev, opts...)
}

// finish writes the fault trace, if requested, and releases the env.
func (e *env) finish() error {
	defer e.close()
	if tracePath == "" {
		return nil
	}
	f, err := os.Create(tracePath)
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := algo.WriteTrace(f, e.ctrl.Faults()); err != nil {
		return err
	}
	e.log.Info("fault trace written", "path", tracePath, "faults", len(e.ctrl.Faults()))
	return nil
}

func (e *env) close() {
	for i := len(e.closer) - 1; i >= 0; i-- {
		_ = e.closer[i].Close()
	}
	e.closer = nil
}

// run sets up an env, runs fn and finishes the env whatever fn returns.
func run(cmd *cobra.Command, fn func(e *env) error) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	err = fn(e)
	if ferr := e.finish(); err == nil {
		err = ferr
	}
	return err
}

// parseUint32 accepts decimal, 0x hex and 0 octal numbers.
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}
