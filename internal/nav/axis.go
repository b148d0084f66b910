package nav

import "gonum.org/v1/gonum/spatial/r3"

// axisComponent projects v onto the signed axis (+/-1 X, +/-2 Y, +/-3 Z).
func axisComponent(v r3.Vec, axis int) float64 {
	switch axis {
	case 1:
		return v.X
	case -1:
		return -v.X
	case 2:
		return v.Y
	case -2:
		return -v.Y
	case 3:
		return v.Z
	case -3:
		return -v.Z
	default:
		return v.X
	}
}

// withAxisComponent returns v with its projection on the signed axis
// replaced by val.
func withAxisComponent(v r3.Vec, axis int, val float64) r3.Vec {
	switch axis {
	case 1:
		v.X = val
	case -1:
		v.X = -val
	case 2:
		v.Y = val
	case -2:
		v.Y = -val
	case 3:
		v.Z = val
	case -3:
		v.Z = -val
	}
	return v
}

// crossAxes returns the lateral and vertical axis indices for a given
// forward axis.
func crossAxes(forward int) (lateral, vertical int) {
	switch forward {
	case 1, -1:
		return 2, 3
	case 2, -2:
		return 1, 3
	default:
		return 1, 2
	}
}
