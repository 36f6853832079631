// Package adc simulates a unipolar sigma-delta converter feeding the
// sampler: a settable base level with uniform noise around it.
package adc

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

// FullScale is the conversion result at the top of the input range.
const FullScale = 0xffff

// VRef is the input voltage producing FullScale. The converter reference
// is 1.2 V and the unipolar range spans half of it.
const VRef = 0.6

// Source is a simulated converter. It is safe for concurrent use.
type Source struct {
	lock  sync.Mutex
	base  uint16
	noise uint16
	rnd   *rand.Rand

	conversions uint64
}

// New creates a Source. Conversions return base ± noise.
func New(base, noise uint16, seed int64) *Source {
	return &Source{base: base, noise: noise, rnd: rand.New(rand.NewSource(seed))}
}

// FromVoltage converts an input voltage to the ideal conversion result.
func FromVoltage(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= VRef:
		return FullScale
	}
	return uint16(v/VRef*FullScale + 0.5)
}

// Set changes the input level.
func (s *Source) Set(base, noise uint16) {
	s.lock.Lock()
	s.base, s.noise = base, noise
	s.lock.Unlock()
}

// Sample runs one conversion.
func (s *Source) Sample() (uint16, error) {
	atomic.AddUint64(&s.conversions, 1)
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.noise == 0 {
		return s.base, nil
	}
	v := int(s.base) + s.rnd.Intn(2*int(s.noise)+1) - int(s.noise)
	switch {
	case v < 0:
		v = 0
	case v > FullScale:
		v = FullScale
	}
	return uint16(v), nil
}

// Conversions returns the number of samples taken.
func (s *Source) Conversions() uint64 {
	return atomic.LoadUint64(&s.conversions)
}
