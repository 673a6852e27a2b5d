package overlay

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/atlasmap-sc/clusterer/internal/cluster"
	"github.com/atlasmap-sc/clusterer/pkg/geo"
)

// Drawable is anything the pane positions on screen.
type Drawable interface {
	OnAdd()
	Draw(proj geo.Projection)
	OnRemove()
}

// Pane keeps the attached drawables and redraws them every frame.
type Pane struct {
	className string
	styles    func() []cluster.Style
	icons     map[int64]*ClusterIcon
}

// NewPane creates a pane whose icons use className and the styles
// returned by styles at draw time.
func NewPane(className string, styles func() []cluster.Style) *Pane {
	return &Pane{
		className: className,
		styles:    styles,
		icons:     make(map[int64]*ClusterIcon),
	}
}

// NewIcon creates and attaches the icon of the cluster with the given id.
func (p *Pane) NewIcon(clusterID int64) cluster.Icon {
	icon := &ClusterIcon{
		id:        clusterID,
		pane:      p,
		className: p.className,
		textColor: "black",
		textSize:  11,
	}
	p.icons[clusterID] = icon
	icon.OnAdd()
	return icon
}

// Draw positions every attached icon under proj.
func (p *Pane) Draw(proj geo.Projection) {
	if proj == nil {
		return
	}
	for _, icon := range p.icons {
		icon.Draw(proj)
	}
}

// Len returns the number of attached icons.
func (p *Pane) Len() int { return len(p.icons) }

// Icon returns the attached icon of a cluster.
func (p *Pane) Icon(clusterID int64) (*ClusterIcon, bool) {
	icon, ok := p.icons[clusterID]
	return icon, ok
}

// Visible returns a snapshot of every visible icon ordered by cluster id.
func (p *Pane) Visible() []IconState {
	var out []IconState
	for _, icon := range p.icons {
		if icon.visible && icon.hasCenter {
			out = append(out, icon.State())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out
}

func (p *Pane) detach(icon *ClusterIcon) {
	if cur, ok := p.icons[icon.id]; ok && cur == icon {
		delete(p.icons, icon.id)
	}
}

// IconState is the rendered state of one cluster icon.
type IconState struct {
	ClusterID  int64
	ClassName  string
	Center     orb.Point
	Position   geo.Pixel
	Text       string
	StyleIndex int
	Style      cluster.Style
}

// ClusterIcon is the on-screen marker of a merged cluster.
type ClusterIcon struct {
	id        int64
	pane      *Pane
	className string
	attached  bool
	visible   bool
	center    orb.Point
	hasCenter bool
	sums      cluster.Sums
	style     cluster.Style
	textColor string
	textSize  int
	pos       geo.Pixel
}

// ClassID is the CSS-like identifier of the icon.
func (i *ClusterIcon) ClassID() string {
	return fmt.Sprintf("%s-%d", i.className, i.id)
}

func (i *ClusterIcon) SetSums(s cluster.Sums) {
	i.sums = s
	i.useStyle()
}

func (i *ClusterIcon) SetCenter(p orb.Point) {
	i.center = p
	i.hasCenter = true
}

func (i *ClusterIcon) Show() { i.visible = true }
func (i *ClusterIcon) Hide() { i.visible = false }

// Remove detaches the icon from its pane.
func (i *ClusterIcon) Remove() {
	i.OnRemove()
	i.hasCenter = false
	if i.pane != nil {
		i.pane.detach(i)
		i.pane = nil
	}
}

func (i *ClusterIcon) Visible() bool { return i.visible }
func (i *ClusterIcon) Attached() bool { return i.attached }

func (i *ClusterIcon) OnAdd() { i.attached = true }

// Draw centers the icon on its cluster center.
func (i *ClusterIcon) Draw(proj geo.Projection) {
	if !i.attached || !i.visible || !i.hasCenter {
		return
	}
	px := proj.ToPixel(i.center)
	px.X -= math.Floor(float64(i.style.Width) / 2)
	px.Y -= math.Floor(float64(i.style.Height) / 2)
	i.pos = px
}

func (i *ClusterIcon) OnRemove() {
	i.Hide()
	i.attached = false
}

// State snapshots the icon.
func (i *ClusterIcon) State() IconState {
	style := i.style
	style.TextColor = i.textColor
	style.TextSize = i.textSize
	return IconState{
		ClusterID:  i.id,
		ClassName:  i.className,
		Center:     i.center,
		Position:   i.pos,
		Text:       i.sums.Text,
		StyleIndex: i.styleIndex(),
		Style:      style,
	}
}

// styleIndex converts the 1-based sums index into a position in the style
// table.
func (i *ClusterIcon) styleIndex() int {
	index := i.sums.Index - 1
	if index < 0 {
		index = 0
	}
	if i.pane != nil && i.pane.styles != nil {
		if n := len(i.pane.styles()); n > 0 && index > n-1 {
			index = n - 1
		}
	}
	return index
}

func (i *ClusterIcon) useStyle() {
	if i.pane == nil || i.pane.styles == nil {
		return
	}
	styles := i.pane.styles()
	if len(styles) == 0 {
		return
	}
	i.style = styles[i.styleIndex()]
	i.textColor = i.style.TextColor
	if i.textColor == "" {
		i.textColor = "black"
	}
	i.textSize = i.style.TextSize
	if i.textSize == 0 {
		i.textSize = 11
	}
	if i.style.BackgroundPosition == "" {
		i.style.BackgroundPosition = "0 0"
	}
}
