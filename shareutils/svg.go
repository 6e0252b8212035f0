package shareutils

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

// SVG canvas geometry.
const (
	svgWidth   = 800
	svgHeight  = 500
	svgMargin  = 60
	svgPointR  = 6
	svgSecretR = 8
)

// Point and marker colors.
const (
	inlierColor = "#2e7d32"
	wrongColor  = "#c62828"
	secretColor = "#1565c0"
	axisColor   = "#9e9e9e"
)

var svgEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// RenderReportSVG draws the share set as a scatter plot with inliers and
// wrong shares visually distinct and the recovered secret marked on the
// x = 0 axis. Output is deterministic for a given input, so rendered
// reports are content-addressable like everything else the service
// stores.
func RenderReportSVG(shares []interfaces.Share, cls interfaces.Classification) []byte {
	wrong := make(map[string]bool, len(cls.WrongIDs))
	for _, id := range cls.WrongIDs {
		wrong[id] = true
	}

	// Plot range covers every share plus the secret point at x = 0.
	xs := make([]float64, 0, len(shares)+1)
	ys := make([]float64, 0, len(shares)+1)
	for _, s := range shares {
		xs = append(xs, plotValue(s.X))
		ys = append(ys, plotValue(s.Y))
	}
	xs = append(xs, 0)
	if cls.Secret != nil {
		ys = append(ys, plotValue(cls.Secret))
	}
	if len(ys) == 0 {
		ys = append(ys, 0)
	}
	minX, maxX := bounds(xs)
	minY, maxY := bounds(ys)

	plotW := float64(svgWidth - 2*svgMargin)
	plotH := float64(svgHeight - 2*svgMargin)
	px := func(x float64) float64 {
		if maxX == minX {
			return svgMargin + plotW/2
		}
		return svgMargin + (x-minX)/(maxX-minX)*plotW
	}
	py := func(y float64) float64 {
		if maxY == minY {
			return svgMargin + plotH/2
		}
		// SVG y grows downward.
		return svgMargin + (maxY-y)/(maxY-minY)*plotH
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		svgWidth, svgHeight, svgWidth, svgHeight)
	fmt.Fprintf(&buf, `<rect width="%d" height="%d" fill="white"/>`+"\n", svgWidth, svgHeight)

	// Axes with min/max labels.
	fmt.Fprintf(&buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n",
		svgMargin, svgHeight-svgMargin, svgWidth-svgMargin, svgHeight-svgMargin, axisColor)
	fmt.Fprintf(&buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n",
		svgMargin, svgMargin, svgMargin, svgHeight-svgMargin, axisColor)
	fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="11" fill="%s">x: %s .. %s</text>`+"\n",
		svgMargin, svgHeight-svgMargin+30, axisColor, axisLabel(minX), axisLabel(maxX))
	fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="11" fill="%s" transform="rotate(-90 18 %d)">y: %s .. %s</text>`+"\n",
		18, svgHeight-svgMargin, axisColor, svgHeight-svgMargin, axisLabel(minY), axisLabel(maxY))

	// Secret marker: guide line at x = 0 and a diamond at the secret value.
	if cls.Secret != nil {
		zeroX := px(0)
		secY := py(plotValue(cls.Secret))
		fmt.Fprintf(&buf, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-dasharray="4 3"/>`+"\n",
			zeroX, svgMargin, zeroX, svgHeight-svgMargin, secretColor)
		fmt.Fprintf(&buf, `<path d="M %.1f %.1f l %d %d l %d %d l %d %d z" fill="%s"><title>secret = %s</title></path>`+"\n",
			zeroX, secY-svgSecretR,
			svgSecretR, svgSecretR, -svgSecretR, svgSecretR, -svgSecretR, -svgSecretR,
			secretColor, svgEscaper.Replace(cls.Secret.String()))
	}

	for _, s := range shares {
		color := inlierColor
		if wrong[s.ID] {
			color = wrongColor
		}
		cx, cy := px(plotValue(s.X)), py(plotValue(s.Y))
		id := svgEscaper.Replace(s.ID)
		fmt.Fprintf(&buf, `<circle cx="%.1f" cy="%.1f" r="%d" fill="%s"><title>%s: (%s, %s)</title></circle>`+"\n",
			cx, cy, svgPointR, color, id, svgEscaper.Replace(s.X.String()), svgEscaper.Replace(s.Y.String()))
		fmt.Fprintf(&buf, `<text x="%.1f" y="%.1f" font-size="11">%s</text>`+"\n",
			cx+svgPointR+2, cy+4, id)
	}

	// Legend.
	fmt.Fprintf(&buf, `<circle cx="%d" cy="20" r="5" fill="%s"/><text x="%d" y="24" font-size="12">inlier</text>`+"\n",
		svgWidth-180, inlierColor, svgWidth-170)
	fmt.Fprintf(&buf, `<circle cx="%d" cy="20" r="5" fill="%s"/><text x="%d" y="24" font-size="12">wrong</text>`+"\n",
		svgWidth-110, wrongColor, svgWidth-100)
	fmt.Fprintf(&buf, `<rect x="%d" y="15" width="10" height="10" fill="%s"/><text x="%d" y="24" font-size="12">secret</text>`+"\n",
		svgWidth-45, secretColor, svgWidth-32)

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// plotValue maps an arbitrary-precision integer onto the float64 plotting
// plane, clamping magnitudes beyond float64 range so layout stays finite.
func plotValue(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 1) || f > 1e300 {
		return 1e300
	}
	if math.IsInf(f, -1) || f < -1e300 {
		return -1e300
	}
	return f
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// axisLabel renders a range endpoint compactly; huge magnitudes switch to
// scientific notation rather than spilling hundred-digit labels.
func axisLabel(v float64) string {
	if v != 0 && (math.Abs(v) >= 1e9 || math.Abs(v) < 1e-3) {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%g", v)
}
