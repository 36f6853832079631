// Package sampler acquires conversion results, filters them by the median
// of a window and publishes the result as the slave transmit value.
package sampler

import (
	"errors"
	"sort"
)

// DefaultWindow is the number of samples per published median.
const DefaultWindow = 11

// ErrWindow is returned for an even or empty window.
var ErrWindow = errors.New("window must be odd")

// Median returns the middle value of an odd number of samples. The samples
// are left untouched.
func Median(samples []uint16) (uint16, error) {
	if len(samples)%2 == 0 {
		return 0, ErrWindow
	}
	sorted := append([]uint16(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2], nil
}
