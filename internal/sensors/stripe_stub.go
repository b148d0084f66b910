//go:build !linux || (!arm && !arm64)

package sensors

import "fmt"

// Stub implementation for non-Linux and/or non-ARM platforms.
func openStripeGPIO(chipPath string, offset int) (stripeSource, error) {
	return nil, fmt.Errorf("sensors: stripe gpio unsupported on this platform")
}

var openStripeGPIOFn = openStripeGPIO
