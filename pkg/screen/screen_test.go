package screen

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestStatusScrolls(t *testing.T) {
	s := New(nil)
	for i := 0; i < 10; i++ {
		s.Status(fmt.Sprint("line ", i))
	}
	lines := s.Lines()
	test.That(t, lines, test.ShouldHaveLength, maxLines)
	test.That(t, lines[0], test.ShouldEqual, "line 4")
	test.That(t, lines[maxLines-1], test.ShouldEqual, "line 9")
}

func TestRenderDrawsSomething(t *testing.T) {
	s := New(nil)
	s.Status("forward 50% to 83 counts")
	s.SetBusVoltage(16.2)
	s.SetFault(true)
	img := s.Render()
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, Size, Size))

	lit := false
	for y := 0; y < Size && !lit; y++ {
		for x := 0; x < Size; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				lit = true
				break
			}
		}
	}
	test.That(t, lit, test.ShouldBeTrue)
}

func TestPack(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	img.Set(1, 0, color.RGBA{G: 0xff, A: 0xff})
	img.Set(0, 1, color.RGBA{B: 0xff, A: 0xff})
	buf := Pack(img)
	test.That(t, buf, test.ShouldHaveLength, Size*Size*2)

	// Pixel (0,0) is rotated to the end of the first column.
	test.That(t, buf[(Size-1)*2+1], test.ShouldEqual, byte(0xf8))
	test.That(t, buf[(Size-1)*2], test.ShouldEqual, byte(0x00))
	// Pure green straddles both bytes.
	test.That(t, buf[(Size-1)*2+Size*2+1], test.ShouldEqual, byte(0x07))
	test.That(t, buf[(Size-1)*2+Size*2], test.ShouldEqual, byte(0xe0))
	// Pure blue.
	test.That(t, buf[(Size-2)*2+1], test.ShouldEqual, byte(0x00))
	test.That(t, buf[(Size-2)*2], test.ShouldEqual, byte(0x1f))
}

func TestCharge(t *testing.T) {
	test.That(t, Charge(16.8), test.ShouldAlmostEqual, 1.0)
	test.That(t, Charge(12), test.ShouldAlmostEqual, 0.0)
	test.That(t, Charge(7.2), test.ShouldAlmostEqual, 0.5)
}

func TestLoopBlanksOnExit(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "fb")
	test.That(t, os.WriteFile(dev, []byte("junk"), 0o600), test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	New(nil).Loop(ctx, dev)

	data, err := os.ReadFile(dev)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldHaveLength, Size*Size*2)
	test.That(t, data[0], test.ShouldEqual, byte(0))

	// A missing device returns straight away.
	New(nil).Loop(context.Background(), filepath.Join(t.TempDir(), "missing"))
}
