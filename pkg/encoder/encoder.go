// Package encoder counts pulses from the digital shaft encoders fitted to the
// drive wheels.  Every transition on the input pin is one count.
package encoder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// How long to block waiting for an edge before checking for shutdown.
const edgeTimeout = 50 * time.Millisecond

// EdgeSource is the part of a GPIO input pin the counter needs.
type EdgeSource interface {
	WaitForEdge(timeout time.Duration) bool
}

type Counter struct {
	Name string

	src    EdgeSource
	count  int64
	cancel context.CancelFunc
	done   sync.WaitGroup
}

var initOnce sync.Once
var initErr error

// Open configures the named GPIO pin for edge detection and starts counting.
func Open(ctx context.Context, pinName string) (*Counter, error) {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, errors.Wrap(initErr, "initialising periph host")
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errors.Errorf("no GPIO pin named %q", pinName)
	}
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, errors.Wrapf(err, "configuring %s for edge detection", pinName)
	}
	return Start(ctx, pinName, pin), nil
}

// Start counts edges from src until Close is called or ctx is done.
func Start(ctx context.Context, name string, src EdgeSource) *Counter {
	c := &Counter{Name: name, src: src}
	var loopCtx context.Context
	loopCtx, c.cancel = context.WithCancel(ctx)
	c.done.Add(1)
	go c.loop(loopCtx)
	return c
}

func (c *Counter) loop(ctx context.Context) {
	defer c.done.Done()
	for ctx.Err() == nil {
		if c.src.WaitForEdge(edgeTimeout) {
			atomic.AddInt64(&c.count, 1)
		}
	}
}

func (c *Counter) Count() int64 {
	return atomic.LoadInt64(&c.count)
}

func (c *Counter) Reset() {
	atomic.StoreInt64(&c.count, 0)
}

func (c *Counter) Close() error {
	c.cancel()
	c.done.Wait()
	return nil
}
