package main

import (
	"time"

	"github.com/taigrr/quadrics/pkg/scene"
)

// holdWindow is how long a key press counts as held without a release event.
// Terminals without key release reporting deliver auto-repeat presses
// instead, which arrive well inside this window.
const holdWindow = 150 * time.Millisecond

type action int

const (
	actForward action = iota
	actBack
	actLeft
	actRight
	actUp
	actDown
	actLookLeft
	actLookRight
	actLookUp
	actLookDown
	actCount
)

// keyMatcher is satisfied by ultraviolet key press and release events.
type keyMatcher interface {
	MatchString(s ...string) bool
}

var bindings = []struct {
	act  action
	keys []string
}{
	{actForward, []string{"w"}},
	{actBack, []string{"s"}},
	{actLeft, []string{"a"}},
	{actRight, []string{"d"}},
	{actUp, []string{"space"}},
	{actDown, []string{"c"}},
	{actLookLeft, []string{"left"}},
	{actLookRight, []string{"right"}},
	{actLookUp, []string{"up"}},
	{actLookDown, []string{"down"}},
}

// Controls turns key events into per-frame scene input.
type Controls struct {
	held  [actCount]time.Time
	boost bool
}

// Press records a key press at now. It reports whether the key is bound.
func (c *Controls) Press(k keyMatcher, now time.Time) bool {
	if k.MatchString("b") {
		c.boost = !c.boost
		return true
	}
	for _, b := range bindings {
		if k.MatchString(b.keys...) {
			c.held[b.act] = now
			return true
		}
	}
	return false
}

// Release clears a held key.
func (c *Controls) Release(k keyMatcher) {
	for _, b := range bindings {
		if k.MatchString(b.keys...) {
			c.held[b.act] = time.Time{}
		}
	}
}

// Reset releases every key and turns boost off.
func (c *Controls) Reset() {
	*c = Controls{}
}

// Boost reports whether boost is on.
func (c *Controls) Boost() bool { return c.boost }

// Input returns the scene input for a frame drawn at now.
func (c *Controls) Input(now time.Time) scene.Input {
	down := func(a action) bool {
		t := c.held[a]
		return !t.IsZero() && now.Sub(t) < holdWindow
	}
	rate := func(pos, neg action) float64 {
		var r float64
		if down(pos) {
			r++
		}
		if down(neg) {
			r--
		}
		return r
	}
	return scene.Input{
		Forward: down(actForward),
		Back:    down(actBack),
		Left:    down(actLeft),
		Right:   down(actRight),
		Up:      down(actUp),
		Down:    down(actDown),
		Boost:   c.boost,
		Yaw:     rate(actLookRight, actLookLeft),
		Pitch:   rate(actLookUp, actLookDown),
	}
}
