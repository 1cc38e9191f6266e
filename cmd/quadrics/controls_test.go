package main

import (
	"slices"
	"testing"
	"time"

	"github.com/taigrr/quadrics/pkg/scene"
)

type key string

func (k key) MatchString(s ...string) bool {
	return slices.Contains(s, string(k))
}

func TestControlsInput(t *testing.T) {
	t0 := time.Unix(100, 0)

	tests := []struct {
		name  string
		press []string
		want  scene.Input
	}{
		{"idle", nil, scene.Input{}},
		{"forward", []string{"w"}, scene.Input{Forward: true}},
		{"strafe and climb", []string{"a", "space"}, scene.Input{Left: true, Up: true}},
		{"look right", []string{"right"}, scene.Input{Yaw: 1}},
		{"look up", []string{"up"}, scene.Input{Pitch: 1}},
		{"opposite looks cancel", []string{"left", "right"}, scene.Input{}},
		{"boost toggles", []string{"b"}, scene.Input{Boost: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Controls
			for _, k := range tt.press {
				if !c.Press(key(k), t0) {
					t.Fatalf("key %q not bound", k)
				}
			}
			if got := c.Input(t0); got != tt.want {
				t.Errorf("Input = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestControlsHoldWindow(t *testing.T) {
	t0 := time.Unix(100, 0)
	var c Controls
	c.Press(key("w"), t0)

	if !c.Input(t0.Add(holdWindow / 2)).Forward {
		t.Error("key should still be held inside the hold window")
	}
	if c.Input(t0.Add(holdWindow)).Forward {
		t.Error("key should expire after the hold window")
	}

	// Auto-repeat keeps it alive.
	c.Press(key("w"), t0.Add(holdWindow))
	if !c.Input(t0.Add(holdWindow + holdWindow/2)).Forward {
		t.Error("repeat press should extend the hold")
	}
}

func TestControlsRelease(t *testing.T) {
	t0 := time.Unix(100, 0)
	var c Controls
	c.Press(key("d"), t0)
	c.Press(key("c"), t0)
	c.Release(key("d"))

	got := c.Input(t0)
	if got.Right {
		t.Error("released key still held")
	}
	if !got.Down {
		t.Error("other keys should stay held")
	}
}

func TestControlsReset(t *testing.T) {
	t0 := time.Unix(100, 0)
	var c Controls
	c.Press(key("b"), t0)
	c.Press(key("s"), t0)
	c.Reset()

	if got := c.Input(t0); got != (scene.Input{}) {
		t.Errorf("Input after Reset = %+v, want zero", got)
	}
	if c.Boost() {
		t.Error("boost should be off after Reset")
	}
}

func TestControlsUnbound(t *testing.T) {
	var c Controls
	if c.Press(key("z"), time.Unix(100, 0)) {
		t.Error("z should not be bound")
	}
}
