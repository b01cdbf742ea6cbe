package loader

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-flashalgo/algo"
	"github.com/moffa90/go-flashalgo/flashdev"
	"github.com/moffa90/go-flashalgo/image"
)

// Page is one ProgramPage request: a page-aligned block of the image,
// padded with the erased value.
type Page struct {
	Addr uint32
	Data []byte
}

// Loader drives the host entry points of a flash algorithm.
//
// Loader is not safe for concurrent use.
type Loader struct {
	entry  *algo.Entry
	dev    *flashdev.Device
	config Config

	start time.Time
	// weights of the erase, program and verify phases in the percentage
	weights [3]float64
}

// New creates a Loader for the device described by dev.
func New(entry *algo.Entry, dev *flashdev.Device, opts ...Option) *Loader {
	if entry == nil {
		panic("entry cannot be nil")
	}
	if dev == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Loader{
		entry:  entry,
		dev:    dev,
		config: cfg,
	}
}

// Download erases, programs and (unless disabled) verifies img.
func (l *Loader) Download(ctx context.Context, img *image.Image) error {
	if err := l.check(img); err != nil {
		return err
	}
	l.start = time.Now()
	l.weights = [3]float64{30, 60, 10}
	if !l.config.Verify {
		l.weights = [3]float64{35, 65, 0}
	}

	if l.config.ChipErase {
		if err := l.eraseChip(ctx); err != nil {
			return err
		}
	} else {
		if err := l.eraseSectors(ctx, l.sectors(img)); err != nil {
			return err
		}
	}

	pages := l.Pages(img)
	if err := l.program(ctx, pages); err != nil {
		return err
	}
	if l.config.Verify {
		if err := l.verify(ctx, pages); err != nil {
			return err
		}
	}

	l.report(Progress{
		Phase:        PhaseComplete,
		Current:      len(pages),
		Total:        len(pages),
		Percentage:   100,
		BytesWritten: img.Size(),
	})
	l.logInfo("download complete",
		"segments", len(img.Segments),
		"bytes", img.Size(),
		"pages", len(pages),
		"elapsed", time.Since(l.start).String(),
	)
	return nil
}

// Erase erases every sector overlapping [addr, addr+n). An empty range erases
// nothing.
func (l *Loader) Erase(ctx context.Context, addr uint32, n int) error {
	if !l.dev.Contains(addr, n) {
		return &RangeError{Address: addr, Size: n, Base: l.dev.Base, End: l.dev.End()}
	}
	if n == 0 {
		return nil
	}
	l.start = time.Now()
	l.weights = [3]float64{100, 0, 0}
	return l.eraseSectors(ctx, l.dev.Sectors(addr, n))
}

// EraseChip erases the whole device.
func (l *Loader) EraseChip(ctx context.Context) error {
	l.start = time.Now()
	l.weights = [3]float64{100, 0, 0}
	return l.eraseChip(ctx)
}

// Verify compares the device contents with img without modifying them.
func (l *Loader) Verify(ctx context.Context, img *image.Image) error {
	if err := l.check(img); err != nil {
		return err
	}
	l.start = time.Now()
	l.weights = [3]float64{0, 0, 100}
	return l.verify(ctx, l.Pages(img))
}

// Pages splits img into page-aligned blocks. Bytes of a page not covered
// by the image hold the erased value. Pages are returned in address order.
func (l *Loader) Pages(img *image.Image) []Page {
	ps := l.dev.PageSize
	var pages []Page
	for _, seg := range img.Segments {
		for i := 0; i < len(seg.Data); {
			addr := seg.Addr + uint32(i)
			pageAddr := addr - (addr-l.dev.Base)%ps

			if n := len(pages); n == 0 || pages[n-1].Addr != pageAddr {
				data := make([]byte, ps)
				for j := range data {
					data[j] = l.dev.ErasedValue
				}
				pages = append(pages, Page{Addr: pageAddr, Data: data})
			}
			page := pages[len(pages)-1]
			i += copy(page.Data[addr-pageAddr:], seg.Data[i:])
		}
	}
	return pages
}

func (l *Loader) sectors(img *image.Image) []flashdev.Sector {
	var out []flashdev.Sector
	for _, seg := range img.Segments {
		for _, s := range l.dev.Sectors(seg.Addr, len(seg.Data)) {
			if n := len(out); n > 0 && out[n-1].Addr == s.Addr {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

func (l *Loader) check(img *image.Image) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	for _, seg := range img.Segments {
		if !l.dev.Contains(seg.Addr, len(seg.Data)) {
			return &RangeError{Address: seg.Addr, Size: len(seg.Data), Base: l.dev.Base, End: l.dev.End()}
		}
	}
	return nil
}

func (l *Loader) eraseChip(ctx context.Context) (err error) {
	if err := l.begin(PhaseErasing, algo.FuncErase); err != nil {
		return err
	}
	defer l.end(PhaseErasing, algo.FuncErase, &err)

	l.report(Progress{Phase: PhaseErasing, Total: 1})
	if l.entry.EraseChip() != algo.StatusOK {
		return l.stepError(PhaseErasing, "EraseChip", l.dev.Base)
	}
	l.report(Progress{Phase: PhaseErasing, Current: 1, Total: 1, Percentage: l.percent(0, 1, 1)})
	return nil
}

func (l *Loader) eraseSectors(ctx context.Context, sectors []flashdev.Sector) (err error) {
	if err := l.begin(PhaseErasing, algo.FuncErase); err != nil {
		return err
	}
	defer l.end(PhaseErasing, algo.FuncErase, &err)

	for i, s := range sectors {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if l.entry.BlankCheck(s.Addr, s.Size, l.dev.ErasedValue) != algo.StatusOK {
			if l.entry.EraseSector(s.Addr) != algo.StatusOK {
				return l.stepError(PhaseErasing, "EraseSector", s.Addr)
			}
		}
		l.report(Progress{
			Phase:      PhaseErasing,
			Current:    i + 1,
			Total:      len(sectors),
			Percentage: l.percent(0, i+1, len(sectors)),
		})
	}
	l.logDebug("erase phase done", "sectors", len(sectors))
	return nil
}

func (l *Loader) program(ctx context.Context, pages []Page) (err error) {
	if err := l.begin(PhaseProgramming, algo.FuncProgram); err != nil {
		return err
	}
	defer l.end(PhaseProgramming, algo.FuncProgram, &err)

	written := 0
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if l.entry.ProgramPage(p.Addr, uint32(len(p.Data)), p.Data) != algo.StatusOK {
			return l.stepError(PhaseProgramming, "ProgramPage", p.Addr)
		}
		written += len(p.Data)
		l.report(Progress{
			Phase:        PhaseProgramming,
			Current:      i + 1,
			Total:        len(pages),
			Percentage:   l.percent(1, i+1, len(pages)),
			BytesWritten: written,
		})
	}
	l.logDebug("program phase done", "pages", len(pages), "bytes", written)
	return nil
}

func (l *Loader) verify(ctx context.Context, pages []Page) (err error) {
	if err := l.begin(PhaseVerifying, algo.FuncVerify); err != nil {
		return err
	}
	defer l.end(PhaseVerifying, algo.FuncVerify, &err)

	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		size := uint32(len(p.Data))
		if got := l.entry.Verify(p.Addr, size, p.Data); got != p.Addr+size {
			return l.stepError(PhaseVerifying, "Verify", got)
		}
		l.report(Progress{
			Phase:      PhaseVerifying,
			Current:    i + 1,
			Total:      len(pages),
			Percentage: l.percent(2, i+1, len(pages)),
		})
	}
	l.logDebug("verify phase done", "pages", len(pages))
	return nil
}

// begin starts the session of a phase.
func (l *Loader) begin(phase string, fn algo.Function) error {
	l.logInfo("phase started", "phase", phase)
	if l.entry.Init(l.dev.Base, uint32(l.config.Clock/physic.Hertz), uint32(fn)) != algo.StatusOK {
		return l.stepError(phase, "Init", l.dev.Base)
	}
	return nil
}

// end closes the session of a phase. A failed UnInit is reported only if
// the phase itself succeeded.
func (l *Loader) end(phase string, fn algo.Function, err *error) {
	if l.entry.UnInit(uint32(fn)) != algo.StatusOK && *err == nil {
		*err = l.stepError(phase, "UnInit", l.dev.Base)
	}
}

func (l *Loader) stepError(phase, step string, addr uint32) error {
	err := &StepError{Phase: phase, Step: step, Address: addr, Err: l.entry.LastError()}
	l.logError("step failed", "phase", phase, "step", step,
		"address", fmt.Sprintf("0x%08X", addr), "error", err.Err)
	return err
}

// percent returns the overall percentage after done of total units of the
// given phase.
func (l *Loader) percent(phase, done, total int) float64 {
	var p float64
	for i := 0; i < phase; i++ {
		p += l.weights[i]
	}
	if total > 0 {
		p += l.weights[phase] * float64(done) / float64(total)
	}
	return p
}

func (l *Loader) report(p Progress) {
	if l.config.ProgressCallback == nil {
		return
	}
	p.ElapsedTime = time.Since(l.start)
	l.config.ProgressCallback(p)
}

func (l *Loader) logDebug(msg string, keysAndValues ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (l *Loader) logInfo(msg string, keysAndValues ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Info(msg, keysAndValues...)
	}
}

func (l *Loader) logError(msg string, keysAndValues ...any) {
	if l.config.Logger != nil {
		l.config.Logger.Error(msg, keysAndValues...)
	}
}
