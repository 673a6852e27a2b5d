package colormap

import (
	"image/color"
	"testing"
)

func TestViridisEndpoints(t *testing.T) {
	t.Parallel()

	c0, ok := Viridis.At(0).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=0")
	}
	if c0 != (color.RGBA{R: 68, G: 1, B: 84, A: 255}) {
		t.Fatalf("unexpected Viridis.At(0): %#v", c0)
	}

	c1, ok := Viridis.At(1).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=1")
	}
	if c1 != (color.RGBA{R: 253, G: 231, B: 37, A: 255}) {
		t.Fatalf("unexpected Viridis.At(1): %#v", c1)
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		if _, ok := ByName(name); !ok {
			t.Errorf("expected colormap %q", name)
		}
	}
	if _, ok := ByName("jet"); ok {
		t.Error("expected unknown colormap to be missing")
	}
}

func TestRampInterpolates(t *testing.T) {
	t.Parallel()

	mid, ok := Ramp{{0, 0, 0, 255}, {200, 100, 50, 255}}.At(0.5).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA")
	}
	if mid != (color.RGBA{R: 100, G: 50, B: 25, A: 255}) {
		t.Fatalf("unexpected midpoint: %#v", mid)
	}
}

func TestClassicStepsPerStyle(t *testing.T) {
	t.Parallel()

	seen := make(map[color.Color]bool)
	for i := 0; i < len(Classic); i++ {
		seen[Classic.At(float64(i)/float64(len(Classic)-1))] = true
	}
	if len(seen) != len(Classic) {
		t.Fatalf("expected %d distinct colors, got %d", len(Classic), len(seen))
	}
	if Classic.At(0.1) != Classic.At(0) {
		t.Error("expected 0.1 to snap to the first stop")
	}
}
