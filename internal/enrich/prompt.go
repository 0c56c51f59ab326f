package enrich

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// BuildPrompt returns the instruction sent with the image. The requested
// JSON uses the hazard's own field names for trend, distribution and factors.
func BuildPrompt(h domain.HazardType, location string) string {
	l := h.Labels()

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s hazard map image", h)
	if loc := strings.TrimSpace(location); loc != "" {
		fmt.Fprintf(&b, " of %s", loc)
	}
	b.WriteString(".\nDivide the image into a 3x3 grid and score each cell's ")
	fmt.Fprintf(&b, "%s risk from 0 (none) to 100 (extreme).\n", h)
	b.WriteString("Respond with a single JSON object and nothing else, using exactly this shape:\n")
	b.WriteString("{\n")
	b.WriteString(`  "region": "<name of the region shown>",` + "\n")
	b.WriteString(`  "hazardLevel": <overall integer risk 0-100>,` + "\n")
	b.WriteString(`  "grid": [<9 integers 0-100, row-major, top-left first>],` + "\n")
	b.WriteString(`  "justification": "<at most 3 sentences>",` + "\n")
	fmt.Fprintf(&b, `  "temporalTrend": [12 objects {"time": "Jan", "%s": <number>, "%s": <number>}, one per month],`+"\n",
		l.TrendKey1, l.TrendKey2)
	fmt.Fprintf(&b, `  "magnitudeDist": [7 objects {"%s": "<label>", "probability": <number 0-100>} for %s],`+"\n",
		l.DistributionKey, strings.Join(l.DistributionLabels[:], ", "))
	fmt.Fprintf(&b, `  "factors": {"%s": <0-100>, "%s": <0-100>, "%s": <0-100>}`+"\n",
		l.FactorKeys[0], l.FactorKeys[1], l.FactorKeys[2])
	b.WriteString("}\n")
	fmt.Fprintf(&b, "%s is measured in %s and %s in %s.", l.TrendKey1, l.Unit1, l.TrendKey2, l.Unit2)

	return b.String()
}
