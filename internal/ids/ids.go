package ids

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// RandomBits is the width of the tie-breaker in the low end of an identifier.
	RandomBits = 24
	// TimestampBits is the width of the timestamp carried on the wire.
	TimestampBits = 40

	// MaxTimestamp is the largest timestamp whose identifier stays positive.
	MaxTimestamp = 1<<(63-RandomBits) - 1

	randomMask    = 1<<RandomBits - 1
	timestampMask = 1<<TimestampBits - 1
)

// ErrTimestampOutOfRange is returned by Generate for timestamps that cannot
// form an ordered identifier.
var ErrTimestampOutOfRange = errors.New("ids: timestamp out of range")

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Generator builds chat and message identifiers of the form (timestamp << 24) | random24.
type Generator struct {
	clock Clock
	rand  io.Reader
}

// NewGenerator constructs a Generator. A nil clock falls back to the system clock.
func NewGenerator(clock Clock) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Generator{clock: clock, rand: rand.Reader}
}

// WithRand swaps the randomness source, mainly for tests.
func (g *Generator) WithRand(r io.Reader) *Generator {
	g.rand = r
	return g
}

// Now returns the current timestamp in seconds.
func (g *Generator) Now() int64 {
	return g.clock.Now().Unix()
}

// Generate composes an identifier from ts and a uniform 24-bit tie-breaker.
func (g *Generator) Generate(ts int64) (int64, error) {
	if ts < 0 || ts > MaxTimestamp {
		return 0, fmt.Errorf("%w: %d", ErrTimestampOutOfRange, ts)
	}
	var buf [3]byte
	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return 0, fmt.Errorf("read random tie-breaker: %w", err)
	}
	low := int64(buf[0]) | int64(buf[1])<<8 | int64(buf[2])<<16
	return Compose(ts, low), nil
}

// Compose joins a timestamp and low bits without any randomness.
func Compose(ts, low int64) int64 {
	return ts<<RandomBits | low&randomMask
}

// Split returns the timestamp and low bits of id.
func Split(id int64) (ts int64, low int64) {
	return int64(uint64(id) >> RandomBits), id & randomMask
}

// FitsTimestamp reports whether ts can be carried in the wire timestamp field.
func FitsTimestamp(ts int64) bool {
	return ts >= 0 && ts <= timestampMask
}
