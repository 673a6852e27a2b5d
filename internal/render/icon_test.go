package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
)

func TestRenderIcon(t *testing.T) {
	r := NewIconRenderer(Config{DefaultColormap: "viridis"})
	styles := cluster.DefaultStyles("m", "png")

	for i, style := range styles {
		data, err := r.RenderIcon(style, i, len(styles), "42", "")
		if err != nil {
			t.Fatalf("style %d: %v", i, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("style %d: invalid png: %v", i, err)
		}
		b := img.Bounds()
		if b.Dx() != style.Width || b.Dy() != style.Height {
			t.Errorf("style %d: expected %dx%d, got %dx%d", i, style.Width, style.Height, b.Dx(), b.Dy())
		}
		_, _, _, a := img.At(0, 0).RGBA()
		if a != 0 {
			t.Errorf("style %d: expected transparent corner", i)
		}
		_, _, _, a = img.At(b.Dx()/2, b.Dy()/2+b.Dy()/4).RGBA()
		if a == 0 {
			t.Errorf("style %d: expected an opaque body", i)
		}
	}
}

func TestRenderIconInvalidSize(t *testing.T) {
	r := NewIconRenderer(Config{})
	if _, err := r.RenderIcon(cluster.Style{}, 0, 1, "1", "viridis"); err == nil {
		t.Fatal("expected an error for an empty style")
	}
}

func TestRenderIconCapsSize(t *testing.T) {
	r := NewIconRenderer(Config{MaxIconSize: 32})
	data, err := r.RenderIcon(cluster.Style{Width: 90, Height: 90}, 0, 1, "", "plasma")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("expected width 32, got %d", img.Bounds().Dx())
	}
}
