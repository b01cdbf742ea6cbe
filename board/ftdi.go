package board

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// USB IDs of the FTDI adapters with an MPSSE engine.
const (
	VendorFTDI    = 0x0403
	ProductFT232H = 0x6014
	ProductFT2232 = 0x6010
)

// ErrNoAdapter is returned when no matching FTDI device is attached.
var ErrNoAdapter = errors.New("board: no FT232H adapter found")

// FTDI opens an FT232H (or the MPSSE channel of an FT2232H) as SPI master.
//
//	ADBUS0  SCK
//	ADBUS1  MOSI
//	ADBUS2  MISO
//	ADBUS4  CS
//	ADBUS5  LED
type FTDI struct {
	// VendorID and ProductID select the adapter. Zero matches any FTDI
	// device with an MPSSE engine.
	VendorID  uint16
	ProductID uint16
}

// Open implements Adapter.
func (a *FTDI) Open(clock physic.Frequency, mode spi.Mode) (*Wiring, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	ft := a.find()
	if ft == nil {
		return nil, ErrNoAdapter
	}

	port, err := ft.SPI()
	if err != nil {
		return nil, fmt.Errorf("spi port: %w", err)
	}
	conn, err := port.Connect(clock, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("spi connect at %s: %w", clock, err)
	}

	return &Wiring{
		Conn:   conn,
		CS:     ft.D4,
		LED:    ft.D5,
		Closer: port,
	}, nil
}

func (a *FTDI) find() *ftdi.FT232H {
	vid := a.VendorID
	if vid == 0 {
		vid = VendorFTDI
	}

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vid {
			continue
		}
		if a.ProductID != 0 && info.DevID != a.ProductID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft
		}
	}
	return nil
}
