package sensors

import (
	"time"

	"podctl/internal/pod"
)

// stripeSource is a monotone stripe counter backend.
type stripeSource interface {
	Read(at time.Time) pod.StripeCount
	Close() error
}

// StripeCounter counts track stripes passing the optical sensor.
type StripeCounter struct {
	src stripeSource
}

// StripeConfig selects the GPIO line the stripe sensor is wired to.
type StripeConfig struct {
	Chip   string `yaml:"chip"`
	Offset int    `yaml:"offset"`
}

// NewStripeCounter opens the configured GPIO line. It fails on
// platforms without the character-device backend.
func NewStripeCounter(cfg StripeConfig) (*StripeCounter, error) {
	src, err := openStripeGPIOFn(cfg.Chip, cfg.Offset)
	if err != nil {
		return nil, err
	}
	return &StripeCounter{src: src}, nil
}

// Read returns the current count stamped at.
func (c *StripeCounter) Read(at time.Time) pod.StripeCount {
	if c == nil || c.src == nil {
		return pod.StripeCount{Time: at}
	}
	return c.src.Read(at)
}

// Close releases the GPIO line.
func (c *StripeCounter) Close() error {
	if c == nil || c.src == nil {
		return nil
	}
	return c.src.Close()
}
