// Package faults holds the errors the motion core can surface.  Callers
// distinguish them with errors.Is / errors.As.
package faults

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidParameter is returned before any motor is energized.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrStalledMotion means the encoders stopped making progress (or the
	// motion ran out of time).  Motors have been stopped.
	ErrStalledMotion = errors.New("stalled motion")
)

// HardwareFault wraps an error reported by the hardware layer.  It is not
// recoverable; motors have been stopped by the time a caller sees it.
type HardwareFault struct {
	Op    string
	Wheel string
	Err   error
}

func (f *HardwareFault) Error() string {
	if f.Wheel == "" {
		return fmt.Sprintf("hardware fault: %s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("hardware fault: %s %s: %v", f.Op, f.Wheel, f.Err)
}

func (f *HardwareFault) Unwrap() error {
	return f.Err
}

// Hardware wraps err as a HardwareFault.  Errors that already carry a
// HardwareFault are passed through untouched.
func Hardware(op, wheel string, err error) error {
	if err == nil {
		return nil
	}
	var hf *HardwareFault
	if errors.As(err, &hf) {
		return err
	}
	return &HardwareFault{Op: op, Wheel: wheel, Err: err}
}

// Invalid returns an ErrInvalidParameter carrying a description.
func Invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidParameter, format, args...)
}

// IsHardwareFault reports whether err carries a HardwareFault.
func IsHardwareFault(err error) bool {
	var hf *HardwareFault
	return errors.As(err, &hf)
}
