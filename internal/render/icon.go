// Package render draws cluster icons using fogleman/gg.
package render

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"sync"

	"github.com/fogleman/gg"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	DefaultColormap string
	// MaxIconSize caps the width and height of rendered icons.
	MaxIconSize int
}

// IconRenderer renders cluster icons as PNG images.
type IconRenderer struct {
	config     Config
	mu         sync.Mutex
	pools      map[[2]int]*sync.Pool
	bufferPool sync.Pool
}

// NewIconRenderer creates a new icon renderer.
func NewIconRenderer(cfg Config) *IconRenderer {
	if cfg.MaxIconSize <= 0 {
		cfg.MaxIconSize = 256
	}
	if _, ok := colormap.ByName(cfg.DefaultColormap); !ok {
		cfg.DefaultColormap = "viridis"
	}
	return &IconRenderer{
		config: cfg,
		pools:  make(map[[2]int]*sync.Pool),
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 8*1024))
			},
		},
	}
}

// Colormap returns the colormap used when a request names none.
func (r *IconRenderer) Colormap() string { return r.config.DefaultColormap }

// RenderIcon draws the icon of style index (0-based) out of numStyles,
// labelled with text. The fill color moves along the colormap as the style
// index grows.
func (r *IconRenderer) RenderIcon(style cluster.Style, index, numStyles int, text, colormapName string) ([]byte, error) {
	w, h := style.Width, style.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid icon size %dx%d", w, h)
	}
	if w > r.config.MaxIconSize {
		w = r.config.MaxIconSize
	}
	if h > r.config.MaxIconSize {
		h = r.config.MaxIconSize
	}

	cmap, ok := colormap.ByName(colormapName)
	if !ok {
		cmap, _ = colormap.ByName(r.config.DefaultColormap)
	}

	pool := r.pool(w, h)
	dc := pool.Get().(*gg.Context)
	defer pool.Put(dc)

	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	t := 0.0
	if numStyles > 1 {
		t = float64(index) / float64(numStyles-1)
	}
	fill := cmap.At(t)

	cx, cy := float64(w)/2, float64(h)/2
	radius := float64(min(w, h)) / 2

	// translucent halo
	r8, g8, b8, _ := fill.RGBA()
	dc.DrawCircle(cx, cy, radius)
	dc.SetRGBA255(int(r8>>8), int(g8>>8), int(b8>>8), 96)
	dc.Fill()

	dc.DrawCircle(cx, cy, radius*0.7)
	dc.SetColor(fill)
	dc.Fill()

	if text != "" {
		setTextColor(dc, style.TextColor)
		dc.DrawStringAnchored(text, cx, cy, 0.5, 0.35)
	}

	return r.encodeContext(dc)
}

func (r *IconRenderer) pool(w, h int) *sync.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int{w, h}
	p, ok := r.pools[key]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} {
				return gg.NewContext(w, h)
			},
		}
		r.pools[key] = p
	}
	return p
}

func setTextColor(dc *gg.Context, c string) {
	c = strings.TrimSpace(strings.ToLower(c))
	switch {
	case strings.HasPrefix(c, "#"):
		dc.SetHexColor(c)
	case c == "white":
		dc.SetRGB(1, 1, 1)
	case c == "red":
		dc.SetRGB(1, 0, 0)
	default:
		dc.SetRGB(0, 0, 0)
	}
}

func (r *IconRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
