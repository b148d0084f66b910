//go:build linux && (arm || arm64)

package sensors

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"podctl/internal/pod"
)

// openStripeGPIO requests the stripe sensor line as a rising-edge input
// on the Linux GPIO character device and counts edges in the event
// handler. Each rising edge is one reflective stripe passing the sensor.
func openStripeGPIO(chipPath string, offset int) (stripeSource, error) {
	if offset < 0 {
		return nil, fmt.Errorf("sensors: invalid gpio offset %d", offset)
	}
	if chipPath == "" {
		chipPath = "/dev/gpiochip0"
	}

	s := &gpiodStripe{}
	line, err := gpiocdev.RequestLine(chipPath, offset,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithDebounce(200*time.Microsecond),
		gpiocdev.WithConsumer("podctl-stripe"),
		gpiocdev.WithEventHandler(s.onEdge))
	if err != nil {
		return nil, fmt.Errorf("sensors: request stripe line %s:%d: %w", chipPath, offset, err)
	}
	s.line = line
	return s, nil
}

var openStripeGPIOFn = openStripeGPIO

type gpiodStripe struct {
	line  *gpiocdev.Line
	count atomic.Uint32
}

func (s *gpiodStripe) onEdge(evt gpiocdev.LineEvent) {
	if evt.Type == gpiocdev.LineEventRisingEdge {
		s.count.Add(1)
	}
}

func (s *gpiodStripe) Read(at time.Time) pod.StripeCount {
	return pod.StripeCount{Time: at, Count: s.count.Load()}
}

func (s *gpiodStripe) Close() error {
	if s == nil || s.line == nil {
		return nil
	}
	err := s.line.Close()
	s.line = nil
	return err
}
