// Package screen renders the course runner's status onto the robot's small
// 128x128 RGB565 framebuffer.
package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	Size          = 128
	DefaultDevice = "/dev/fb1"
	maxLines      = 6
)

// Screen keeps the latest status lines and battery voltage.  It satisfies the
// status sink interfaces used by the motion and steering packages.
type Screen struct {
	lock        sync.Mutex
	orientation string
	lines       []string
	busVoltage  float64
	fault       bool
	log         *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Screen {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Screen{log: log}
}

// Status appends a line, scrolling the oldest off the top.
func (s *Screen) Status(msg string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lines = append(s.lines, msg)
	if len(s.lines) > maxLines {
		s.lines = s.lines[len(s.lines)-maxLines:]
	}
}

func (s *Screen) SetOrientation(o fmt.Stringer) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.orientation = o.String()
}

func (s *Screen) SetBusVoltage(v float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.busVoltage = v
}

// SetFault shows the warning triangle.
func (s *Screen) SetFault(fault bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.fault = fault
}

func (s *Screen) Lines() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.lines...)
}

// Render draws the current state.
func (s *Screen) Render() image.Image {
	s.lock.Lock()
	lines := append([]string(nil), s.lines...)
	orientation := s.orientation
	voltage := s.busVoltage
	fault := s.fault
	s.lock.Unlock()

	dc := gg.NewContext(Size, Size)
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(orientation, 2, 10)
	for i, l := range lines {
		dc.DrawString(l, 2, 24+float64(i)*12)
	}

	dc.Push()
	dc.Translate(96, 5)
	drawPowerBar(dc, voltage)
	dc.Pop()

	if fault {
		dc.Push()
		dc.Translate(80, 10)
		DrawWarning(dc)
		dc.Pop()
	}
	return dc.Image()
}

// Pack converts an image into the framebuffer's rotated RGB565 layout.
func Pack(img image.Image) []byte {
	buf := make([]byte, Size*Size*2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(Size-1-y)*2+x*Size*2+1] = (rb << 3) | (gb >> 3)
			buf[(Size-1-y)*2+x*Size*2] = bb | (gb << 5)
		}
	}
	return buf
}

// Loop redraws the screen twice a second until the context is done, then
// blanks it.  A missing framebuffer is not an error; the robot runs headless.
func (s *Screen) Loop(ctx context.Context, device string) {
	f, err := os.OpenFile(device, os.O_RDWR, 0666)
	if err != nil {
		s.log.Infow("Failed to open screen, ignoring", "device", device, "error", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			blank := make([]byte, Size*Size*2)
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(blank)
			return
		case <-ticker.C:
		}

		buf := Pack(s.Render())
		if _, err := f.Seek(0, 0); err != nil {
			s.log.Errorw("Screen failure", "error", err)
			return
		}
		for i := 0; i < Size; i++ {
			if _, err := f.Write(buf[i*Size*2 : (i+1)*Size*2]); err != nil {
				s.log.Errorw("Screen failure", "error", err)
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

const (
	minCellVoltage = 3
	maxCellVoltage = 4.2
)

// Charge estimates the fraction of charge left from the pack voltage.
func Charge(voltage float64) float64 {
	var cellVoltage float64
	if voltage > 9 {
		// assume the 4-cell pack
		cellVoltage = voltage / 4
	} else {
		// assume the 2-cell pack
		cellVoltage = voltage / 2
	}
	return (cellVoltage - minCellVoltage) / (maxCellVoltage - minCellVoltage)
}

func drawPowerBar(dc *gg.Context, voltage float64) {
	charge := Charge(voltage)

	// Colour depends on charge level.
	if charge < 0.1 {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawRectangle(0, 70, 30, 10)
	for n := 2; n < 13; n++ {
		if charge >= (float64(n) / 13) {
			dc.DrawRectangle(2, 75-float64(n)*5, 26, 3)
		}
	}
	dc.Fill()
	dc.DrawString(fmt.Sprintf("%.1fv", voltage), -2, 93)
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}
