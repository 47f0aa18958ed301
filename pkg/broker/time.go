package broker

import "time"

// nowSeconds returns the current time as seconds since epoch, matching
// the floating-point timestamp convention used by JobResult.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
