package loader

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-flashalgo/algo"
	"github.com/moffa90/go-flashalgo/driver"
	"github.com/moffa90/go-flashalgo/driver/memflash"
	"github.com/moffa90/go-flashalgo/flashdev"
	"github.com/moffa90/go-flashalgo/image"
)

const base = 0x90000000

// testDevice is a 1 MiB device with 256 byte pages and 4 KiB sectors.
func testDevice() *flashdev.Device {
	d := flashdev.Default()
	d.Size = 1 << 20
	d.PageSize = 256
	return d
}

func newTestLoader(t *testing.T, opts ...Option) (*Loader, *memflash.Chip, *algo.Entry) {
	t.Helper()
	chip := memflash.New(1<<20, 4096)
	entry := algo.NewEntry(algo.New(chip, algo.WithPageSize(256)))
	return New(entry, testDevice(), opts...), chip, entry
}

func imageOf(t *testing.T, segs ...*image.Segment) *image.Image {
	t.Helper()
	return &image.Image{Segments: segs}
}

func fill(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i) ^ seed
	}
	return p
}

func TestNew(t *testing.T) {
	chip := memflash.New(1<<16, 4096)
	entry := algo.NewEntry(algo.New(chip))

	assert.Panics(t, func() { New(nil, flashdev.Default()) })
	assert.Panics(t, func() { New(entry, nil) })

	l := New(entry, flashdev.Default(), WithClock(0), WithVerify(false), WithChipErase(true))
	assert.Equal(t, DefaultClock, l.config.Clock)
	assert.False(t, l.config.Verify)
	assert.True(t, l.config.ChipErase)
}

func TestPages(t *testing.T) {
	l, _, _ := newTestLoader(t)

	img := imageOf(t,
		&image.Segment{Addr: base + 0x10, Data: []byte{1, 2}},
		&image.Segment{Addr: base + 0xF0, Data: fill(0x20, 0)},
		&image.Segment{Addr: base + 0x400, Data: []byte{9}},
	)
	pages := l.Pages(img)
	require.Len(t, pages, 3)

	assert.Equal(t, uint32(base), pages[0].Addr)
	assert.Equal(t, uint32(base+0x100), pages[1].Addr)
	assert.Equal(t, uint32(base+0x400), pages[2].Addr)
	for _, p := range pages {
		assert.Len(t, p.Data, 256)
	}

	// two segments sharing the first page
	assert.Equal(t, []byte{0xFF, 1, 2, 0xFF}, pages[0].Data[0x0F:0x13])
	assert.Equal(t, fill(0x10, 0), pages[0].Data[0xF0:])
	assert.Equal(t, fill(0x20, 0)[0x10:], pages[1].Data[:0x10])
	assert.Equal(t, byte(0xFF), pages[1].Data[0x10])
	assert.Equal(t, byte(9), pages[2].Data[0])
}

func TestDownload(t *testing.T) {
	var progress []Progress
	logger := &testLogger{}
	l, chip, _ := newTestLoader(t,
		WithProgressCallback(func(p Progress) { progress = append(progress, p) }),
		WithLogger(logger),
	)

	// leftovers from a previous download must be erased
	copy(chip.Bytes()[0x2000:], bytes.Repeat([]byte{0x00}, 0x100))

	data := fill(0x1800, 0x5A)
	img, err := image.FromBinary(base+0x1100, data)
	require.NoError(t, err)
	require.NoError(t, l.Download(context.Background(), img))

	assert.Equal(t, data, chip.Bytes()[0x1100:0x2900])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 0x100), chip.Bytes()[0x1000:0x1100])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 0x700), chip.Bytes()[0x2900:0x3000])

	var erased []uint32
	for _, c := range chip.Calls() {
		if c.Op == memflash.OpEraseSector {
			erased = append(erased, c.Offset)
		}
	}
	assert.Equal(t, []uint32{0x1000, 0x2000}, erased)

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, PhaseComplete, last.Phase)
	assert.Equal(t, 100.0, last.Percentage)
	assert.Equal(t, len(data), last.BytesWritten)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Percentage, progress[i-1].Percentage)
	}
	assert.Contains(t, logger.info, "download complete")
}

func TestDownloadSessions(t *testing.T) {
	l, _, entry := newTestLoader(t)
	img, err := image.FromBinary(base, []byte{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, l.Download(context.Background(), img))
	s := entry.Session()
	require.NotNil(t, s)
	assert.Equal(t, algo.FuncVerify, s.Function)
	assert.True(t, s.Closed())
	assert.Equal(t, uint32(base), s.Base)
}

func TestDownloadChipErase(t *testing.T) {
	l, chip, _ := newTestLoader(t, WithChipErase(true), WithVerify(false))
	chip.Bytes()[0xF0000] = 0x00

	img, err := image.FromBinary(base, []byte{0xAA})
	require.NoError(t, err)
	require.NoError(t, l.Download(context.Background(), img))

	assert.Equal(t, byte(0xFF), chip.Bytes()[0xF0000])
	assert.Equal(t, byte(0xAA), chip.Bytes()[0])
	for _, c := range chip.Calls() {
		assert.NotEqual(t, memflash.OpRead, c.Op, "verify is disabled")
		assert.NotEqual(t, memflash.OpEraseSector, c.Op)
	}
}

func TestDownloadOutOfRange(t *testing.T) {
	l, chip, _ := newTestLoader(t)

	for _, seg := range []*image.Segment{
		{Addr: 0x08000000, Data: []byte{1}},
		{Addr: base + 1<<20 - 1, Data: []byte{1, 2}},
	} {
		err := l.Download(context.Background(), imageOf(t, seg))
		var rerr *RangeError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, seg.Addr, rerr.Address)
	}
	assert.Empty(t, chip.Calls())
}

func TestDownloadEraseFailure(t *testing.T) {
	l, chip, entry := newTestLoader(t)
	chip.Protect(0x3000, 0x1000)

	img, err := image.FromBinary(base+0x2000, fill(0x2000, 1))
	require.NoError(t, err)
	err = l.Download(context.Background(), img)

	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, PhaseErasing, serr.Phase)
	assert.Equal(t, "EraseSector", serr.Step)
	assert.Equal(t, uint32(base+0x3000), serr.Address)
	assert.True(t, driver.IsKind(err, driver.KindWriteProtect))
	assert.True(t, entry.Session().Closed(), "the failed phase must still end its session")
}

func TestDownloadVerifyFailure(t *testing.T) {
	l, _, _ := newTestLoader(t)

	img, err := image.FromBinary(base+0x1000, fill(16, 3))
	require.NoError(t, err)
	require.NoError(t, l.Download(context.Background(), img))

	err = l.Verify(context.Background(), imageOf(t, &image.Segment{Addr: base, Data: bytes.Repeat([]byte{0x11}, 0x80)}))
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, PhaseVerifying, serr.Phase)
	assert.Equal(t, uint32(base), serr.Address)

	var verr *algo.VerifyError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, byte(0x11), verr.Expected)
	assert.Equal(t, byte(0xFF), verr.Actual)
}

func TestVerifyPadding(t *testing.T) {
	l, chip, _ := newTestLoader(t)
	copy(chip.Bytes()[0x100:], []byte{1, 2, 3})
	img := imageOf(t, &image.Segment{Addr: base + 0x100, Data: []byte{1, 2, 3}})

	require.NoError(t, l.Verify(context.Background(), img))

	// bytes around the image are expected erased
	chip.Bytes()[0x1FF] = 0x7F
	err := l.Verify(context.Background(), img)
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, uint32(base+0x1FF), serr.Address)
}

func TestErase(t *testing.T) {
	l, chip, _ := newTestLoader(t)
	ctx := context.Background()

	require.NoError(t, l.Erase(ctx, base+0x1800, 0x1000))
	assert.Equal(t, []memflash.Call{
		{Op: memflash.OpEraseSector, Offset: 0x1000, Len: 4096},
		{Op: memflash.OpEraseSector, Offset: 0x2000, Len: 4096},
	}, chip.Calls())

	var rerr *RangeError
	assert.ErrorAs(t, l.Erase(ctx, base+1<<20, 1), &rerr)

	chip.ResetCalls()
	require.NoError(t, l.Erase(ctx, base+0x1800, 0))
	assert.Empty(t, chip.Calls(), "an empty range erases nothing")

	chip.ResetCalls()
	require.NoError(t, l.EraseChip(ctx))
	assert.Equal(t, []memflash.Call{{Op: memflash.OpEraseChip, Len: 1 << 20}}, chip.Calls())
}

func TestInitFailure(t *testing.T) {
	chip := memflash.New(1<<20, 4096)
	bringUp := driver.BringUpFunc(func(context.Context, physic.Frequency) error {
		return assert.AnError
	})
	entry := algo.NewEntry(algo.New(chip, algo.WithBringUp(bringUp)))
	l := New(entry, testDevice())

	err := l.EraseChip(context.Background())
	var serr *StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Init", serr.Step)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, chip.Calls())
}

func TestCancelled(t *testing.T) {
	l, chip, _ := newTestLoader(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img, err := image.FromBinary(base, []byte{1})
	require.NoError(t, err)
	assert.ErrorIs(t, l.Download(ctx, img), context.Canceled)
	assert.Empty(t, chip.Calls())
}

type testLogger struct {
	debug, info, errs []string
}

func (l *testLogger) Debug(msg string, kv ...any) { l.debug = append(l.debug, msg) }
func (l *testLogger) Info(msg string, kv ...any)  { l.info = append(l.info, msg) }
func (l *testLogger) Error(msg string, kv ...any) { l.errs = append(l.errs, msg) }
