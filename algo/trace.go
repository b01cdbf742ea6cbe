package algo

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/moffa90/go-flashalgo/driver"
)

// Fault is a failure recorded by a session, kept with its driver
// classification after the host tool has only seen a failed status.
type Fault struct {
	Session string      `cbor:"1,keyasint" json:"session"`
	Time    time.Time   `cbor:"2,keyasint" json:"time"`
	Op      string      `cbor:"3,keyasint" json:"op"`
	Address uint32      `cbor:"4,keyasint" json:"address"`
	Offset  uint32      `cbor:"5,keyasint" json:"offset"`
	Kind    driver.Kind `cbor:"6,keyasint" json:"kind"`
	Message string      `cbor:"7,keyasint" json:"message"`
}

func (f Fault) String() string {
	return fmt.Sprintf("%s %s at 0x%08X (offset 0x%08X): %s: %s",
		f.Time.Format(time.RFC3339), f.Op, f.Address, f.Offset, f.Kind, f.Message)
}

// traceEncMode is the CBOR encoder mode for fault traces.
var traceEncMode cbor.EncMode

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	traceEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trace CBOR encoder mode: %v", err))
	}
}

// WriteTrace writes faults to w as a sequence of CBOR items.
func WriteTrace(w io.Writer, faults []Fault) error {
	enc := traceEncMode.NewEncoder(w)
	for _, f := range faults {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode fault: %w", err)
		}
	}
	return nil
}

// ReadTrace reads a fault sequence written by WriteTrace.
func ReadTrace(r io.Reader) ([]Fault, error) {
	dec := cbor.NewDecoder(r)
	var faults []Fault
	for {
		var f Fault
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			return faults, nil
		}
		if err != nil {
			return faults, fmt.Errorf("decode fault %d: %w", len(faults), err)
		}
		faults = append(faults, f)
	}
}
