package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bryanwahyu/alphatrend/internal/domain/radar"
)

func TestMarkdownAddsClasses(t *testing.T) {
	t.Parallel()

	out, err := NewMarkdown().HTML("# Title\n\nSome **bold** text.\n\n- one\n- two\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	for _, want := range []string{`<h1 class="md-h1">Title</h1>`, `<strong class="md-strong">bold</strong>`, `class="md-ul"`, `<li class="md-li">one</li>`} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in %s", want, html)
		}
	}
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	t.Parallel()

	out, err := NewMarkdown().HTML("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Fatalf("raw html passed through: %s", out)
	}
}

func TestRadarSVG(t *testing.T) {
	t.Parallel()

	r := NewRadarRenderer(radar.DefaultLayout(), DefaultStyle())
	out, err := r.Render(
		[]string{"Technology", "Orders", "Margin", "Capacity", "Customers"},
		[]radar.Entity{{Name: "A", Scores: []float64{8, 9, 6, 7, 8}}, {Name: "B", Scores: []float64{5, 5, 5, 5, 5}}},
		FormatSVG,
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	svg := string(out)
	if !strings.HasPrefix(strings.TrimSpace(svg), "<svg") {
		t.Fatalf("not an svg document: %.80s", svg)
	}
	for _, want := range []string{"Technolo..", "Orders", "stroke-dasharray"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestRadarPNG(t *testing.T) {
	t.Parallel()

	r := NewRadarRenderer(radar.DefaultLayout(), DefaultStyle())
	out, err := r.Render([]string{"a", "b", "c"}, []radar.Entity{{Name: "x", Scores: []float64{1, 2, 3}}}, FormatPNG)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\x89PNG")) {
		t.Fatal("not a png")
	}
	if FormatPNG.ContentType() != "image/png" || FormatSVG.ContentType() != "image/svg+xml" {
		t.Fatal("unexpected content types")
	}
}

func TestRadarRejectsTwoDimensions(t *testing.T) {
	t.Parallel()

	r := NewRadarRenderer(radar.DefaultLayout(), DefaultStyle())
	if _, err := r.Render([]string{"a", "b"}, nil, FormatSVG); !errors.Is(err, radar.ErrTooFewDimensions) {
		t.Fatalf("err = %v", err)
	}
}
