package search

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestWarningThrottle(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	throttle := newWarningThrottle(30*time.Minute, clock)

	assert.True(t, throttle.Allow("nzb"))
	assert.False(t, throttle.Allow("nzb"), "second warning inside the window is suppressed")
	assert.True(t, throttle.Allow("torrent"), "keys are independent")

	clock.Advance(29 * time.Minute)
	assert.False(t, throttle.Allow("nzb"))

	clock.Advance(2 * time.Minute)
	assert.True(t, throttle.Allow("nzb"), "window expired")
	assert.False(t, throttle.Allow("nzb"), "allowing restarts the window")
}
