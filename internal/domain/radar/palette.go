package radar

import (
	"fmt"
	"math"
)

// Palette is indexed by entity position modulo its length.
var Palette = []string{
	"#818cf8", // indigo
	"#34d399", // emerald
	"#f472b6", // pink
	"#fbbf24", // amber
	"#22d3ee", // cyan
	"#a78bfa", // purple
}

// ColorFor returns the palette colour of the entity at idx.
func ColorFor(idx int) string {
	n := len(Palette)
	return Palette[((idx%n)+n)%n]
}

// Average is the arithmetic mean of scores, 0 for an empty vector.
func Average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// RoundTenth rounds to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatAverage renders the mean the way the legend shows it.
func FormatAverage(scores []float64) string {
	return fmt.Sprintf("%.1f", Average(scores))
}
