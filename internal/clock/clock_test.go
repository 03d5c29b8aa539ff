package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)

func TestFakeFiresInDueOrder(t *testing.T) {
	c := NewFake(start)
	var fired []string
	var firedAt []time.Time

	c.AfterFunc(2*time.Minute, func() { fired = append(fired, "b"); firedAt = append(firedAt, c.Now()) })
	c.AfterFunc(time.Minute, func() { fired = append(fired, "a"); firedAt = append(firedAt, c.Now()) })
	c.AfterFunc(10*time.Minute, func() { fired = append(fired, "late") })

	c.Advance(5 * time.Minute)

	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, []time.Time{start.Add(time.Minute), start.Add(2 * time.Minute)}, firedAt)
	assert.Equal(t, start.Add(5*time.Minute), c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(start)
	fired := false
	timer := c.AfterFunc(time.Minute, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Hour)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeRearmDuringAdvance(t *testing.T) {
	c := NewFake(start)
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(30*time.Second, tick)
	}
	c.AfterFunc(30*time.Second, tick)

	c.Advance(5 * time.Minute)
	assert.Equal(t, 10, ticks)
}

func TestStopAfterFireReturnsFalse(t *testing.T) {
	c := NewFake(start)
	timer := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	assert.False(t, timer.Stop())
}
