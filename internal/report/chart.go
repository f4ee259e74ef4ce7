package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Chart dimensions
const (
	ChartWidth  = 800
	ChartHeight = 300
	ThumbWidth  = 160
	ThumbHeight = 60
	chartMargin = 10
)

var (
	background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	baseline   = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	lineUp     = color.NRGBA{R: 22, G: 163, B: 74, A: 255}
	lineDown   = color.NRGBA{R: 220, G: 38, B: 38, A: 255}
)

// RenderEquityChart draws the equity curve as a line chart. The baseline marks the
// first value; the curve is green when the run ends above it and red otherwise.
func RenderEquityChart(values []float64, width, height int) *image.NRGBA {
	img := imaging.New(width, height, background)
	if len(values) == 0 || width <= 2*chartMargin || height <= 2*chartMargin {
		return img
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi, lo = hi+1, lo-1
	}

	plotW := float64(width - 2*chartMargin - 1)
	plotH := float64(height - 2*chartMargin - 1)
	x := func(i int) int {
		if len(values) == 1 {
			return chartMargin
		}
		return chartMargin + int(math.Round(float64(i)*plotW/float64(len(values)-1)))
	}
	y := func(v float64) int {
		return chartMargin + int(math.Round((hi-v)*plotH/(hi-lo)))
	}

	base := y(values[0])
	for px := chartMargin; px < width-chartMargin; px++ {
		img.SetNRGBA(px, base, baseline)
	}

	c := lineUp
	if values[len(values)-1] < values[0] {
		c = lineDown
	}
	for i := 1; i < len(values); i++ {
		drawLine(img, x(i-1), y(values[i-1]), x(i), y(values[i]), c)
	}
	if len(values) == 1 {
		img.SetNRGBA(x(0), y(values[0]), c)
	}
	return img
}

// SaveEquityChart renders the chart and a Lanczos-resized thumbnail into dir.
// Returns the chart and thumbnail paths.
func SaveEquityChart(dir, runID string, values []float64) (string, string, error) {
	safeID := sanitizeName(runID)
	if safeID == "" {
		return "", "", fmt.Errorf("invalid run id: %s", runID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	chartPath := filepath.Join(dir, safeID+"_equity.png")
	thumbPath := filepath.Join(dir, safeID+"_equity_thumb.png")

	img := RenderEquityChart(values, ChartWidth, ChartHeight)
	if err := imaging.Save(img, chartPath); err != nil {
		return "", "", fmt.Errorf("failed to save chart: %w", err)
	}

	thumb := imaging.Resize(img, ThumbWidth, ThumbHeight, imaging.Lanczos)
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return "", "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return chartPath, thumbPath, nil
}

// drawLine plots a segment with Bresenham's algorithm.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetNRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sanitizeName keeps the run id safe for use as a file name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
