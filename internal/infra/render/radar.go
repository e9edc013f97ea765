package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/radar"
)

// Format of a rendered chart.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Style holds the chart colours and stroke settings.
type Style struct {
	Grid          string
	Label         string
	Background    string // empty leaves the canvas transparent
	LabelFontSize float64
	LabelOffsetY  int
	GridDash      []float64
	FillAlpha     uint8
	SeriesWidth   float64
	MarkerRadius  float64
}

func DefaultStyle() Style {
	return Style{
		Grid:          "#334155",
		Label:         "#94a3b8",
		LabelFontSize: 11,
		LabelOffsetY:  5,
		GridDash:      []float64{4, 4},
		FillAlpha:     51,
		SeriesWidth:   2,
		MarkerRadius:  3,
	}
}

// RadarRenderer draws radar geometry onto a go-chart surface.
type RadarRenderer struct {
	layout radar.Layout
	style  Style
}

func NewRadarRenderer(layout radar.Layout, style Style) *RadarRenderer {
	return &RadarRenderer{layout: layout, style: style}
}

func (r *RadarRenderer) Layout() radar.Layout { return r.layout }

// Render projects the matrix and encodes it in the requested format.
func (r *RadarRenderer) Render(dimensions []string, entities []radar.Entity, format Format) ([]byte, error) {
	g, err := r.layout.Build(dimensions, entities)
	if err != nil {
		return nil, err
	}
	return r.Draw(g, format)
}

// Draw paints grid rings, axes, series polygons with their markers, then labels.
func (r *RadarRenderer) Draw(g radar.Geometry, format Format) ([]byte, error) {
	size := int(math.Round(g.Size))
	provider := chart.SVG
	if format == FormatPNG {
		provider = chart.PNG
	}
	rd, err := provider(size, size)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	if r.style.Background != "" {
		rd.SetFillColor(hexColor(r.style.Background))
		rd.MoveTo(0, 0)
		rd.LineTo(size, 0)
		rd.LineTo(size, size)
		rd.LineTo(0, size)
		rd.Close()
		rd.Fill()
	}

	grid := hexColor(r.style.Grid)
	for _, ring := range g.Rings {
		rd.SetStrokeColor(grid)
		rd.SetStrokeWidth(1)
		if ring.Outer {
			rd.SetStrokeDashArray(nil)
		} else {
			rd.SetStrokeDashArray(r.style.GridDash)
		}
		path(rd, ring.Points)
		rd.Stroke()
	}
	rd.SetStrokeDashArray(nil)

	for _, ax := range g.Axes {
		rd.SetStrokeColor(grid)
		rd.SetStrokeWidth(1)
		rd.MoveTo(px(ax.From.X), px(ax.From.Y))
		rd.LineTo(px(ax.To.X), px(ax.To.Y))
		rd.Stroke()
	}

	for _, s := range g.Series {
		c := hexColor(s.Color)
		rd.SetStrokeColor(c)
		rd.SetFillColor(c.WithAlpha(r.style.FillAlpha))
		rd.SetStrokeWidth(r.style.SeriesWidth)
		path(rd, s.Points)
		rd.FillStroke()

		for _, p := range s.Points {
			rd.SetFillColor(c)
			rd.SetStrokeColor(c)
			rd.SetStrokeWidth(0)
			rd.Circle(r.style.MarkerRadius, px(p.X), px(p.Y))
			// the svg surface writes circles immediately, the raster one only traces them
			if format == FormatPNG {
				rd.Fill()
			}
		}
	}

	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	rd.SetFont(font)
	rd.SetFontColor(hexColor(r.style.Label))
	rd.SetFontSize(r.style.LabelFontSize)
	for _, lb := range g.Labels {
		x := px(lb.At.X)
		switch lb.Anchor {
		case radar.AnchorMiddle:
			x -= rd.MeasureText(lb.Text).Width() / 2
		case radar.AnchorEnd:
			x -= rd.MeasureText(lb.Text).Width()
		}
		rd.Text(lb.Text, x, px(lb.At.Y)+r.style.LabelOffsetY)
	}

	var buf bytes.Buffer
	if err := rd.Save(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func path(rd chart.Renderer, pts []radar.Point) {
	if len(pts) == 0 {
		return
	}
	rd.MoveTo(px(pts[0].X), px(pts[0].Y))
	for _, p := range pts[1:] {
		rd.LineTo(px(p.X), px(p.Y))
	}
	rd.Close()
}

func px(v float64) int { return int(math.Round(v)) }

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// RenderMatrix draws a report matrix.
func (r *RadarRenderer) RenderMatrix(m *analysis.Matrix, format Format) ([]byte, error) {
	if m == nil {
		return nil, radar.ErrTooFewDimensions
	}
	return r.Render(m.Dimensions, Entities(m), format)
}

// RenderSVG satisfies analysis.ChartRenderer.
func (r *RadarRenderer) RenderSVG(m *analysis.Matrix) ([]byte, error) {
	return r.RenderMatrix(m, FormatSVG)
}

// Entities converts matrix rows into radar entities, keeping their order.
func Entities(m *analysis.Matrix) []radar.Entity {
	out := make([]radar.Entity, len(m.Companies))
	for i, c := range m.Companies {
		out[i] = radar.Entity{Name: c.Name, Scores: c.Scores}
	}
	return out
}
