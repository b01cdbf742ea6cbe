package board

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is the diagnostic console speed.
const DefaultBaudRate = 115200

// OpenConsole opens the diagnostic serial console, 8N1. A zero baud rate
// selects DefaultBaudRate.
func OpenConsole(name string, baud int) (serial.Port, error) {
	port, err := serial.Open(name, consoleMode(baud))
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", name, err)
	}
	return port, nil
}

// Consoles lists the serial ports present on the host.
func Consoles() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

func consoleMode(baud int) *serial.Mode {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}
