package ids

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNowUsesClockSeconds(t *testing.T) {
	g := NewGenerator(fixedClock{t: time.Unix(1700000000, 999)})
	assert.Equal(t, int64(1700000000), g.Now())
}

func TestGenerateComposesTimestampAndRandomBits(t *testing.T) {
	g := NewGenerator(nil).WithRand(bytes.NewReader([]byte{0x01, 0x02, 0x03}))

	id, err := g.Generate(1000)
	require.NoError(t, err)

	ts, low := Split(id)
	assert.Equal(t, int64(1000), ts)
	assert.Equal(t, int64(0x030201), low)
	assert.Equal(t, int64(1000)<<24|0x030201, id)
}

func TestGenerateOrdersByTimestamp(t *testing.T) {
	high := NewGenerator(nil).WithRand(bytes.NewReader([]byte{0xff, 0xff, 0xff}))
	low := NewGenerator(nil).WithRand(bytes.NewReader([]byte{0x00, 0x00, 0x00}))

	for _, tc := range []struct{ t1, t2 int64 }{{0, 1}, {999, 1000}, {MaxTimestamp - 1, MaxTimestamp}} {
		a, err := high.WithRand(bytes.NewReader([]byte{0xff, 0xff, 0xff})).Generate(tc.t1)
		require.NoError(t, err)
		b, err := low.WithRand(bytes.NewReader([]byte{0x00, 0x00, 0x00})).Generate(tc.t2)
		require.NoError(t, err)
		assert.Less(t, a, b, "t1=%d t2=%d", tc.t1, tc.t2)
	}
}

func TestGenerateRejectsTimestampsOutsideOrderedRange(t *testing.T) {
	g := NewGenerator(nil).WithRand(bytes.NewReader(make([]byte, 3)))
	id, err := g.Generate(MaxTimestamp)
	require.NoError(t, err)
	assert.Positive(t, id)

	for _, ts := range []int64{-1, MaxTimestamp + 1, 1<<40 - 1} {
		_, err := g.Generate(ts)
		assert.ErrorIs(t, err, ErrTimestampOutOfRange, "ts=%d", ts)
	}
}

func TestGenerateRandomnessFailure(t *testing.T) {
	g := NewGenerator(nil).WithRand(failingReader{})
	_, err := g.Generate(1)
	require.Error(t, err)
}

func TestComposeMasksLowBits(t *testing.T) {
	assert.Equal(t, int64(5)<<24|0xffffff, Compose(5, -1))
}

func TestFitsTimestamp(t *testing.T) {
	assert.True(t, FitsTimestamp(0))
	assert.True(t, FitsTimestamp(1<<40-1))
	assert.False(t, FitsTimestamp(1<<40))
	assert.False(t, FitsTimestamp(-1))
}
