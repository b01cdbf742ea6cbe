package w25q

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/moffa90/go-flashalgo/driver"
)

// Flash commands: [W25Q256JV|8.1.2 Instruction Set Table 1]
const (
	cmdReadID             = 0x9F
	cmdRead               = 0x03
	cmdWriteEnable        = 0x06
	cmdPageProgram        = 0x02
	cmdSectorErase        = 0x20 // 4KB
	cmdChipErase          = 0xC7
	cmdReadStatusRegister = 0x05
	cmdEnter4ByteAddress  = 0xB7
	cmdEnableReset        = 0x66
	cmdReset              = 0x99
)

const (
	// PageSize is the program page of the chip. A single program command
	// wraps around within one page.
	PageSize = 256

	// SectorSize is the smallest erase unit.
	SectorSize = 4096

	// maxTx bounds a single SPI transaction. [FTDI-AN_108]
	maxTx = 65536

	// tRST: time until the chip accepts commands after a software reset
	tReset = 30 * time.Microsecond
)

// Flash is a W25Q-family chip behind a SPI connection. It is not safe for
// concurrent use.
type Flash struct {
	conn spi.Conn
	cs   gpio.PinOut

	id    [3]byte
	pr    Params
	addr4 bool

	pollInterval time.Duration

	// tProgram and tErase replace the part's page program and sector
	// erase timeouts when non-zero
	tProgram time.Duration
	tErase   time.Duration
}

// New returns a Flash using conn. If cs is nil, chip select is left to the
// SPI port.
func New(conn spi.Conn, cs gpio.PinOut) *Flash {
	return &Flash{
		conn:         conn,
		cs:           cs,
		pollInterval: 100 * time.Microsecond,
	}
}

// SetPollInterval sets how often the status register is polled while the
// chip is busy.
func (f *Flash) SetPollInterval(d time.Duration) {
	if d > 0 {
		f.pollInterval = d
	}
}

// SetTimeouts overrides the page program and sector erase timeouts of the
// identified part. A zero duration keeps the part's own timing.
func (f *Flash) SetTimeouts(program, sectorErase time.Duration) {
	f.tProgram = program
	f.tErase = sectorErase
}

// Timeouts returns the page program and sector erase timeouts in effect.
func (f *Flash) Timeouts() (program, sectorErase time.Duration) {
	program, sectorErase = f.pr.TPageProgram, f.pr.TSectorErase
	if f.tProgram > 0 {
		program = f.tProgram
	}
	if f.tErase > 0 {
		sectorErase = f.tErase
	}
	return program, sectorErase
}

// Init resets the chip, identifies it and enables 4-byte addressing on
// parts larger than 16 MiB.
func (f *Flash) Init(ctx context.Context) error {
	if err := f.Reset(); err != nil {
		return err
	}
	id, err := f.ReadID()
	if err != nil {
		return err
	}
	if id == [3]byte{} || id == [3]byte{0xFF, 0xFF, 0xFF} {
		return &driver.Error{Op: "read id", Kind: driver.KindBus, Err: fmt.Errorf("no chip responding (id %X)", id)}
	}
	if f.pr.Size == 0 {
		return &driver.Error{Op: "read id", Kind: driver.KindOutOfRange, Err: fmt.Errorf("unsupported capacity code 0x%02X (id %X)", id[2], id)}
	}
	if f.pr.Size > 1<<24 {
		if err := f.cmd("enter 4-byte mode", cmdEnter4ByteAddress); err != nil {
			return err
		}
		f.addr4 = true
	}
	return f.BusyWait(ctx, "init", 0, time.Second, driver.KindBus)
}

// Reset issues a software reset.
func (f *Flash) Reset() error {
	if err := f.cmd("reset", cmdEnableReset); err != nil {
		return err
	}
	if err := f.cmd("reset", cmdReset); err != nil {
		return err
	}
	f.addr4 = false
	time.Sleep(tReset)
	return nil
}

// ReadID returns the JEDEC ID of the chip and configures its parameters.
func (f *Flash) ReadID() ([3]byte, error) {
	buf := make([]byte, 4)
	buf[0] = cmdReadID
	if err := f.tx("read id", 0, buf); err != nil {
		return [3]byte{}, err
	}
	f.id = [3]byte(buf[1:])
	if p, ok := Lookup(f.id); ok {
		f.pr = p
	} else {
		f.pr = genericParams(f.id)
	}
	return f.id, nil
}

// ID returns the JEDEC ID read by the last ReadID.
func (f *Flash) ID() [3]byte { return f.id }

// Params returns the parameters of the identified part.
func (f *Flash) Params() Params { return f.pr }

// ReadStatusRegister reads status register 1.
func (f *Flash) ReadStatusRegister() (StatusRegister, error) {
	buf := []byte{cmdReadStatusRegister, 0}
	if err := f.tx("read status", 0, buf); err != nil {
		return 0, err
	}
	return StatusRegister(buf[1]), nil
}

// EraseChip implements driver.Chip.
func (f *Flash) EraseChip(ctx context.Context) error {
	const op = "chip erase"
	if err := f.writeEnable(op, 0); err != nil {
		return err
	}
	if err := f.cmd(op, cmdChipErase); err != nil {
		return err
	}
	return f.BusyWait(ctx, op, 0, f.pr.TChipErase, driver.KindEraseTimeout)
}

// EraseSector implements driver.Chip. offset must be 4 KiB aligned.
func (f *Flash) EraseSector(ctx context.Context, offset uint32) error {
	const op = "sector erase"
	if offset%SectorSize != 0 {
		return &driver.Error{Op: op, Offset: offset, Kind: driver.KindMisaligned}
	}
	if err := f.checkRange(op, offset, SectorSize); err != nil {
		return err
	}
	if err := f.writeEnable(op, offset); err != nil {
		return err
	}
	buf := f.frame(cmdSectorErase, offset, 0)
	if err := f.tx(op, offset, buf); err != nil {
		return err
	}
	_, timeout := f.Timeouts()
	return f.BusyWait(ctx, op, offset, timeout, driver.KindEraseTimeout)
}

// WritePage implements driver.Chip. data may span several program pages;
// it is split at page boundaries.
func (f *Flash) WritePage(ctx context.Context, offset uint32, data []byte) error {
	if err := f.checkRange("page program", offset, uint32(len(data))); err != nil {
		return err
	}
	for len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(len(data), PageSize-int(offset%PageSize))
		if err := f.pageProgram(ctx, offset, data[:n]); err != nil {
			return err
		}
		offset += uint32(n)
		data = data[n:]
	}
	return nil
}

func (f *Flash) pageProgram(ctx context.Context, offset uint32, data []byte) error {
	const op = "page program"
	if err := f.writeEnable(op, offset); err != nil {
		return err
	}
	buf := f.frame(cmdPageProgram, offset, len(data))
	copy(buf[len(buf)-len(data):], data)
	if err := f.tx(op, offset, buf); err != nil {
		return err
	}
	timeout, _ := f.Timeouts()
	return f.BusyWait(ctx, op, offset, timeout, driver.KindProgramTimeout)
}

// Read implements driver.Chip. Large reads are split into several
// transactions.
func (f *Flash) Read(ctx context.Context, offset uint32, p []byte) error {
	const op = "read"
	if err := f.checkRange(op, offset, uint32(len(p))); err != nil {
		return err
	}
	hdr := f.addrLen() + 1
	for len(p) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(len(p), maxTx-hdr)
		buf := f.frame(cmdRead, offset, n)
		if err := f.tx(op, offset, buf); err != nil {
			return err
		}
		copy(p, buf[hdr:])
		offset += uint32(n)
		p = p[n:]
	}
	return nil
}

// BusyWait polls the status register until the chip is idle. It fails
// with the given kind once timeout expires; a zero timeout waits
// indefinitely.
func (f *Flash) BusyWait(ctx context.Context, op string, offset uint32, timeout time.Duration, kind driver.Kind) error {
	// Fast path
	sr, err := f.ReadStatusRegister()
	if err != nil {
		return err
	}
	if !sr.Busy() {
		return nil
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expired:
			return &driver.Error{Op: op, Offset: offset, Kind: kind, Err: fmt.Errorf("still busy after %s", timeout)}
		case <-ticker.C:
			sr, err := f.ReadStatusRegister()
			if err != nil {
				return err
			}
			if !sr.Busy() {
				return nil
			}
		}
	}
}

// writeEnable sets the write enable latch and checks the chip accepted it.
// A latch that does not set, or any block protect bit, means the array
// cannot be modified.
func (f *Flash) writeEnable(op string, offset uint32) error {
	if err := f.cmd(op, cmdWriteEnable); err != nil {
		return err
	}
	sr, err := f.ReadStatusRegister()
	if err != nil {
		return err
	}
	if !sr.WriteEnabled() || sr.BlockProtect() != 0 {
		return &driver.Error{Op: op, Offset: offset, Kind: driver.KindWriteProtect, Err: fmt.Errorf("status %s", sr)}
	}
	return nil
}

func (f *Flash) checkRange(op string, offset, n uint32) error {
	if f.pr.Size == 0 {
		return &driver.Error{Op: op, Offset: offset, Kind: driver.KindBus, Err: errNotInitialized}
	}
	if uint64(offset)+uint64(n) > uint64(f.pr.Size) {
		return &driver.Error{Op: op, Offset: offset, Kind: driver.KindOutOfRange}
	}
	return nil
}

func (f *Flash) addrLen() int {
	if f.addr4 {
		return 4
	}
	return 3
}

// frame returns a buffer holding the command, the address and n trailing
// bytes for data.
func (f *Flash) frame(c byte, offset uint32, n int) []byte {
	al := f.addrLen()
	buf := make([]byte, 1+al+n)
	buf[0] = c
	for i := 0; i < al; i++ {
		buf[al-i] = byte(offset >> (8 * i))
	}
	return buf
}

func (f *Flash) cmd(op string, c byte) error {
	return f.tx(op, 0, []byte{c})
}

// tx wraps a SPI transaction with CS assertion. buf is both sent and
// overwritten with the received bytes.
func (f *Flash) tx(op string, offset uint32, buf []byte) (err error) {
	defer func() {
		if err != nil {
			err = &driver.Error{Op: op, Offset: offset, Kind: driver.KindBus, Err: err}
		}
	}()
	if f.cs == nil {
		return f.conn.Tx(buf, buf)
	}
	if err = f.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := f.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return f.conn.Tx(buf, buf)
}

var errNotInitialized = errors.New("w25q: chip not initialized")

var _ driver.Chip = (*Flash)(nil)
