package shareutils

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/interfaces"
)

func reportFixture() ([]interfaces.Share, interfaces.Classification) {
	shares := []interfaces.Share{
		{ID: "A", X: big.NewInt(1), Y: big.NewInt(3)},
		{ID: "B", X: big.NewInt(2), Y: big.NewInt(5)},
		{ID: "C", X: big.NewInt(3), Y: big.NewInt(7)},
		{ID: "D", X: big.NewInt(4), Y: big.NewInt(99)},
	}
	cls := interfaces.Classification{
		Secret:    big.NewInt(1),
		InlierIDs: []string{"A", "B", "C"},
		WrongIDs:  []string{"D"},
	}
	return shares, cls
}

func TestRenderReportSVG(t *testing.T) {
	shares, cls := reportFixture()
	svg := string(RenderReportSVG(shares, cls))

	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))

	// Three inlier circles plus the legend swatch, one wrong circle plus
	// the legend swatch.
	assert.Equal(t, 4, strings.Count(svg, inlierColor))
	assert.Equal(t, 2, strings.Count(svg, wrongColor))

	assert.Contains(t, svg, "secret = 1")
	for _, id := range []string{"A", "B", "C", "D"} {
		assert.Contains(t, svg, ">"+id+"</text>")
	}
}

func TestRenderReportSVG_Deterministic(t *testing.T) {
	shares, cls := reportFixture()
	first := RenderReportSVG(shares, cls)
	second := RenderReportSVG(shares, cls)
	assert.Equal(t, first, second)
}

func TestRenderReportSVG_EscapesIdentifiers(t *testing.T) {
	shares := []interfaces.Share{
		{ID: `<evil&"id">`, X: big.NewInt(1), Y: big.NewInt(2)},
	}
	cls := interfaces.Classification{Secret: big.NewInt(2), InlierIDs: []string{shares[0].ID}}

	svg := string(RenderReportSVG(shares, cls))
	assert.NotContains(t, svg, `<evil`)
	assert.Contains(t, svg, "&lt;evil&amp;&quot;id&quot;&gt;")
}

func TestRenderReportSVG_HugeCoordinates(t *testing.T) {
	y := new(big.Int).Exp(big.NewInt(10), big.NewInt(400), nil)
	shares := []interfaces.Share{
		{ID: "1", X: big.NewInt(1), Y: y},
		{ID: "2", X: big.NewInt(2), Y: new(big.Int).Neg(y)},
	}
	cls := interfaces.Classification{Secret: big.NewInt(0), InlierIDs: []string{"1", "2"}}

	svg := string(RenderReportSVG(shares, cls))
	assert.Contains(t, svg, "<svg ")
	assert.NotContains(t, svg, "Inf")
	assert.NotContains(t, svg, "NaN")
}

func TestRenderReportSVG_EmptyInput(t *testing.T) {
	svg := string(RenderReportSVG(nil, interfaces.Classification{}))
	assert.Contains(t, svg, "<svg ")
}
