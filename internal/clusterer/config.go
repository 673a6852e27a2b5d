package clusterer

import (
	"log"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
)

const (
	DefaultGridSize       = 60
	DefaultMinZoom        = 0
	DefaultMaxZoom        = 17
	DefaultMinClusterSize = 2
	DefaultClassName      = "cluster"
	DefaultImagePath      = "https://maps-tools-242a6.firebaseapp.com/clusterer/images/m"
	DefaultImageExtension = "png"
)

// Config holds the engine options.
type Config struct {
	GridSize       float64
	MinZoom        int
	MaxZoom        int
	MinClusterSize int
	AverageCenter  bool
	ZoomOnClick    bool
	ClassName      string
	ImagePath      string
	ImageExtension string
	// Styles is the icon style table. When empty, one style per
	// cluster.DefaultSizes entry is generated from ImagePath.
	Styles     []cluster.Style
	Calculator cluster.Calculator
	Logger     *log.Logger
}

// DefaultConfig returns the default options.
func DefaultConfig() Config {
	return Config{
		GridSize:       DefaultGridSize,
		MinZoom:        DefaultMinZoom,
		MaxZoom:        DefaultMaxZoom,
		MinClusterSize: DefaultMinClusterSize,
		AverageCenter:  true,
		ZoomOnClick:    true,
		ClassName:      DefaultClassName,
		ImagePath:      DefaultImagePath,
		ImageExtension: DefaultImageExtension,
		Calculator:     cluster.DefaultCalculator,
	}
}

// applyDefaults fills zero values. Boolean options are taken as given.
func (c *Config) applyDefaults() {
	if c.GridSize <= 0 {
		c.GridSize = DefaultGridSize
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = DefaultMaxZoom
	}
	if c.MinZoom < 0 {
		c.MinZoom = DefaultMinZoom
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = DefaultMinClusterSize
	}
	if c.ClassName == "" {
		c.ClassName = DefaultClassName
	}
	if c.ImagePath == "" {
		c.ImagePath = DefaultImagePath
	}
	if c.ImageExtension == "" {
		c.ImageExtension = DefaultImageExtension
	}
	if len(c.Styles) == 0 {
		c.Styles = cluster.DefaultStyles(c.ImagePath, c.ImageExtension)
	}
	if c.Calculator == nil {
		c.Calculator = cluster.DefaultCalculator
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}
