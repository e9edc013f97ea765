package radar

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewDimensions is returned when a chart has fewer than MinDimensions axes.
var ErrTooFewDimensions = errors.New("radar needs at least 3 dimensions")

// ErrScoreCount is returned when an entity's score vector length differs from the dimension count.
var ErrScoreCount = errors.New("score count does not match dimension count")

const MinDimensions = 3

// Anchor is the horizontal text alignment of an axis label.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// Layout holds the fixed chart parameters.
type Layout struct {
	Size          float64   // square canvas edge in pixels
	Radius        float64   // outer radius, value MaxValue lands here
	MaxValue      float64   // Vmax
	RingLevels    []float64 // fractions of MaxValue
	LabelScale    float64   // labels sit at MaxValue*LabelScale
	LabelMaxRunes int
	AnchorEpsilon float64
}

// DefaultLayout mirrors the 350px chart with a 120px radar.
func DefaultLayout() Layout {
	return Layout{
		Size:          350,
		Radius:        120,
		MaxValue:      10,
		RingLevels:    []float64{0.2, 0.4, 0.6, 0.8, 1.0},
		LabelScale:    1.2,
		LabelMaxRunes: 8,
		AnchorEpsilon: 5,
	}
}

// Point is a pixel coordinate, origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center returns C = S/2.
func (l Layout) Center() float64 { return l.Size / 2 }

func (l Layout) maxValue() float64 {
	if l.MaxValue <= 0 {
		return 10
	}
	return l.MaxValue
}

// Angle returns θ_i for dimension i of d; dimension 0 points up and the rest follow clockwise.
func Angle(i, d int) float64 {
	return float64(i)*(2*math.Pi/float64(d)) - math.Pi/2
}

// Project maps value v on dimension i (of d) to canvas coordinates.
// Values are not clamped: anything outside [0, MaxValue] overshoots the grid.
func (l Layout) Project(v float64, i, d int) Point {
	theta := Angle(i, d)
	r := (v / l.maxValue()) * l.Radius
	c := l.Center()
	return Point{X: c + r*math.Cos(theta), Y: c + r*math.Sin(theta)}
}

// Polygon projects one value per dimension, in index order.
func (l Layout) Polygon(values []float64) []Point {
	d := len(values)
	pts := make([]Point, d)
	for i, v := range values {
		pts[i] = l.Project(v, i, d)
	}
	return pts
}

// AnchorFor picks the label alignment from the label x position.
func AnchorFor(x, center, eps float64) Anchor {
	switch {
	case math.Abs(x-center) < eps:
		return AnchorMiddle
	case x < center:
		return AnchorStart
	default:
		return AnchorEnd
	}
}

// TruncateLabel cuts labels longer than max runes and appends "..".
func TruncateLabel(label string, max int) string {
	if max <= 0 {
		return label
	}
	r := []rune(label)
	if len(r) <= max {
		return label
	}
	return string(r[:max]) + ".."
}

// Ring is a closed reference polygon at a constant value.
type Ring struct {
	Value  float64 `json:"value"`
	Outer  bool    `json:"outer"`
	Points []Point `json:"points"`
}

// Axis runs from the centre to the MaxValue point of one dimension.
type Axis struct {
	Index int   `json:"index"`
	From  Point `json:"from"`
	To    Point `json:"to"`
}

// Label is the anchor point and display text of one dimension.
type Label struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Full   string `json:"full"`
	At     Point  `json:"at"`
	Anchor Anchor `json:"anchor"`
}

// Entity is one scored company.
type Entity struct {
	Name   string
	Scores []float64
}

// Series is the drawable polygon of one entity. Markers share the polygon vertices.
type Series struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Color   string    `json:"color"`
	Points  []Point   `json:"points"`
	Scores  []float64 `json:"scores"`
	Average float64   `json:"average"`
}

// Geometry is everything a rendering surface needs to draw the chart.
type Geometry struct {
	Size       float64  `json:"size"`
	Center     float64  `json:"center"`
	Dimensions []string `json:"dimensions"`
	Rings      []Ring   `json:"rings"`
	Axes       []Axis   `json:"axes"`
	Labels     []Label  `json:"labels"`
	Series     []Series `json:"series"`
}

// Build projects dimensions and entities into chart geometry.
func (l Layout) Build(dimensions []string, entities []Entity) (Geometry, error) {
	d := len(dimensions)
	if d < MinDimensions {
		return Geometry{}, fmt.Errorf("%w: got %d", ErrTooFewDimensions, d)
	}
	for _, e := range entities {
		if len(e.Scores) != d {
			return Geometry{}, fmt.Errorf("%w: %q has %d scores for %d dimensions", ErrScoreCount, e.Name, len(e.Scores), d)
		}
	}

	vmax := l.maxValue()
	c := l.Center()
	g := Geometry{
		Size:       l.Size,
		Center:     c,
		Dimensions: append([]string(nil), dimensions...),
	}

	for _, frac := range l.RingLevels {
		level := frac * vmax
		values := make([]float64, d)
		for i := range values {
			values[i] = level
		}
		g.Rings = append(g.Rings, Ring{Value: level, Outer: frac >= 1, Points: l.Polygon(values)})
	}

	center := Point{X: c, Y: c}
	for i, name := range dimensions {
		g.Axes = append(g.Axes, Axis{Index: i, From: center, To: l.Project(vmax, i, d)})

		at := l.Project(vmax*l.LabelScale, i, d)
		g.Labels = append(g.Labels, Label{
			Index:  i,
			Text:   TruncateLabel(name, l.LabelMaxRunes),
			Full:   name,
			At:     at,
			Anchor: AnchorFor(at.X, c, l.AnchorEpsilon),
		})
	}

	for idx, e := range entities {
		g.Series = append(g.Series, Series{
			Index:   idx,
			Name:    e.Name,
			Color:   ColorFor(idx),
			Points:  l.Polygon(e.Scores),
			Scores:  append([]float64(nil), e.Scores...),
			Average: RoundTenth(Average(e.Scores)),
		})
	}
	return g, nil
}
