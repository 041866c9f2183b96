package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateOpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	set := NewSet(10, 4, 0.5, 30*time.Second)
	set.now = func() time.Time { return now }
	c := set.For("ai")

	c.Record(true)
	c.Record(false)
	c.Record(false)
	assert.True(t, c.Allow(), "below the minimum sample count")

	c.Record(true)
	assert.False(t, c.Allow(), "2 of 4 failed")

	now = now.Add(29 * time.Second)
	assert.False(t, c.Allow())
	now = now.Add(time.Second)
	assert.True(t, c.Allow())

	c.Record(false)
	assert.True(t, c.Allow(), "window was reset when the circuit opened")
}

func TestStateWindowSlides(t *testing.T) {
	c := &State{WindowSize: 4, MinSamples: 4, Threshold: 0.75, Cooldown: time.Minute}
	c.Record(false)
	c.Record(false)
	for i := 0; i < 4; i++ {
		c.Record(true)
	}
	c.Record(false)
	c.Record(false)
	assert.True(t, c.Allow(), "old failures slid out of the window")
}

func TestSetReusesState(t *testing.T) {
	set := NewSet(20, 10, 0.5, time.Second)
	assert.Same(t, set.For("identity"), set.For("identity"))
	assert.NotSame(t, set.For("identity"), set.For("blob"))
}
