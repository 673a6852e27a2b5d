package cluster

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/atlasmap-sc/clusterer/internal/feature"
)

// DefaultSizes are the pixel sizes of the generated icon styles.
var DefaultSizes = []int{53, 56, 66, 78, 90}

// Style describes one cluster icon look.
type Style struct {
	URL                string `yaml:"url" json:"url"`
	Width              int    `yaml:"width" json:"width"`
	Height             int    `yaml:"height" json:"height"`
	TextColor          string `yaml:"text_color,omitempty" json:"textColor,omitempty"`
	TextSize           int    `yaml:"text_size,omitempty" json:"textSize,omitempty"`
	FontFamily         string `yaml:"font_family,omitempty" json:"fontFamily,omitempty"`
	FontWeight         string `yaml:"font_weight,omitempty" json:"fontWeight,omitempty"`
	BackgroundPosition string `yaml:"background_position,omitempty" json:"backgroundPosition,omitempty"`
	Anchor             []int  `yaml:"anchor,omitempty" json:"anchor,omitempty"`
}

// DefaultStyles builds one style per entry of DefaultSizes, with image
// URLs <imagePath><n>.<extension> numbered from 1.
func DefaultStyles(imagePath, extension string) []Style {
	styles := make([]Style, 0, len(DefaultSizes))
	for i, size := range DefaultSizes {
		styles = append(styles, Style{
			URL:    fmt.Sprintf("%s%d.%s", imagePath, i+1, extension),
			Width:  size,
			Height: size,
		})
	}
	return styles
}

// Sums is what a cluster icon displays: a 1-based style index and a label.
type Sums struct {
	Index int
	Text  string
}

// Calculator maps the members of a cluster and the number of available
// styles to the icon's style index and label.
type Calculator func(features []*feature.Feature, numStyles int) Sums

// DefaultCalculator picks the style from the number of decimal digits in
// the member count, capped at numStyles, and labels the icon with the count.
func DefaultCalculator(features []*feature.Feature, numStyles int) Sums {
	index := 0
	for dv := len(features); dv != 0; dv /= 10 {
		index++
	}
	if index > numStyles {
		index = numStyles
	}
	return Sums{
		Index: index,
		Text:  strconv.Itoa(len(features)),
	}
}

// Icon is the marker representing a merged cluster on the map.
type Icon interface {
	SetSums(s Sums)
	SetCenter(p orb.Point)
	Show()
	Hide()
	Remove()
}
