package atomicdict

import "fmt"

// minLogSize / maxLogSize bound the index ring's log2 size, matching
// ATOMIC_DICT_MIN_LOG_SIZE / ATOMIC_DICT_MAX_LOG_SIZE.
const (
	minLogSize uint8 = 6  // 1<<6 == 64 slots
	maxLogSize uint8 = 56 // 1<<56 slots
)

// Option configures a Map at construction.
type Option func(*config)

type config struct {
	initialSize    uint64
	reservationBuf int
	initialPairs   any // []Pair[K, V], type-asserted by New
}

func defaultConfig() config {
	return config{
		initialSize:    1 << minLogSize,
		reservationBuf: 4,
	}
}

// WithInitialSize requests an index ring large enough to hold size
// elements before a grow is needed. It is rounded up to the next power of
// two no smaller than 64, and must not exceed 1<<56.
func WithInitialSize(size uint64) Option {
	return func(c *config) { c.initialSize = size }
}

// WithReservationBufferSize sets the per-accessor page-reservation stride.
// Must be one of 1, 2, 4, 8, 16, 32, 64.
func WithReservationBufferSize(n int) Option {
	return func(c *config) { c.reservationBuf = n }
}

// WithInitialPairs seeds a freshly constructed Map with pairs (spec.md §6's
// `new(initial_size, buffer_size=4, initial_pairs?)`), bulk-inserting them
// after the index ring is allocated. It raises the requested initial size
// to at least len(pairs) (a WithInitialSize given after it overrides
// this). Fewer entries than ring slots are usable, so a bulk load that
// nearly fills the ring can still trigger a grow.
func WithInitialPairs[K comparable, V any](pairs []Pair[K, V]) Option {
	return func(c *config) {
		c.initialPairs = pairs
		if c.initialSize < uint64(len(pairs)) {
			c.initialSize = uint64(len(pairs))
		}
	}
}

func (c config) validate() error {
	switch c.reservationBuf {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return fmt.Errorf("atomicdict: reservation buffer size %d is not a supported power of two", c.reservationBuf)
	}
	if c.initialSize > 1<<maxLogSize {
		return fmt.Errorf("atomicdict: initial size %d exceeds 1<<%d", c.initialSize, maxLogSize)
	}
	return nil
}

// logSizeFor returns the smallest logSize in [minLogSize, maxLogSize] such
// that 1<<logSize >= size.
func logSizeFor(size uint64) uint8 {
	ls := minLogSize
	for uint64(1)<<ls < size && ls < maxLogSize {
		ls++
	}
	return ls
}
