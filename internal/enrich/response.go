package enrich

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
)

// GridSize is the number of cells in the model's 3×3 grid.
const GridSize = 9

// Response is the model's assessment after defensive coercion. Every field
// may be absent: HazardLevel is nil, Grid holds only the indices the model
// supplied valid numbers for, and the report slices may be empty.
type Response struct {
	Region        string
	HazardLevel   *int
	Grid          map[int]int
	Justification string
	Trend         []domain.TrendPoint
	Distribution  []domain.DistributionPoint
	Factors       []domain.FactorScore
}

// GridValue returns the model's score for row-major index i.
func (r *Response) GridValue(i int) (int, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r.Grid[i]
	return v, ok
}

// ParseResponse coerces an untrusted decoded object into a Response using the
// field names requested for hazard h. Unusable fields are dropped.
func ParseResponse(raw map[string]any, h domain.HazardType) *Response {
	l := h.Labels()
	resp := &Response{Grid: map[int]int{}}

	resp.Region, _ = asString(raw["region"])
	resp.Justification, _ = asString(raw["justification"])
	if lvl, ok := asScore(raw["hazardLevel"]); ok {
		resp.HazardLevel = &lvl
	}

	for i, v := range flatten(raw["grid"]) {
		if i >= GridSize {
			break
		}
		if s, ok := asScore(v); ok {
			resp.Grid[i] = s
		}
	}

	resp.Trend = parseTrend(raw["temporalTrend"], l)
	resp.Distribution = parseDistribution(raw["magnitudeDist"], l)
	resp.Factors = parseFactors(raw["factors"], l)

	return resp
}

func parseTrend(v any, l domain.HazardLabels) []domain.TrendPoint {
	items, _ := v.([]any)
	out := make([]domain.TrendPoint, 0, len(domain.TrendLabels))
	for _, item := range items {
		if len(out) == len(domain.TrendLabels) {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		v1, ok1 := firstNumber(obj, l.TrendKey1, "value1")
		v2, ok2 := firstNumber(obj, l.TrendKey2, "value2")
		if !ok1 && !ok2 {
			continue
		}
		label, ok := firstString(obj, "time", "month", "label")
		if !ok {
			label = domain.TrendLabels[len(out)]
		}
		out = append(out, domain.TrendPoint{Time: label, Value1: v1, Value2: v2})
	}
	return out
}

func parseDistribution(v any, l domain.HazardLabels) []domain.DistributionPoint {
	items, _ := v.([]any)
	out := make([]domain.DistributionPoint, 0, len(l.DistributionLabels))
	for _, item := range items {
		if len(out) == len(l.DistributionLabels) {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		p, ok := firstNumber(obj, "probability", "value")
		if !ok {
			continue
		}
		label, ok := firstString(obj, l.DistributionKey, "label")
		if !ok {
			label = l.DistributionLabels[len(out)]
		}
		out = append(out, domain.DistributionPoint{Label: label, Probability: math.Max(0, p)})
	}
	return out
}

// parseFactors accepts either the requested object form
// {"geological": 80, ...} or a list of {"name", "value"} pairs.
func parseFactors(v any, l domain.HazardLabels) []domain.FactorScore {
	out := make([]domain.FactorScore, 0, len(l.FactorKeys))

	switch f := v.(type) {
	case map[string]any:
		for i, key := range l.FactorKeys {
			if n, ok := lookupFold(f, key); ok {
				if val, ok := asFloat(n); ok {
					out = append(out, domain.FactorScore{Name: l.FactorNames[i], Value: clamp(val, 0, 100)})
				}
			}
		}
	case []any:
		for _, item := range f {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, ok := firstString(obj, "name", "factor")
			if !ok {
				continue
			}
			val, ok := firstNumber(obj, "value", "score")
			if !ok {
				continue
			}
			out = append(out, domain.FactorScore{Name: displayFactorName(name, l), Value: clamp(val, 0, 100)})
			if len(out) == len(l.FactorKeys) {
				break
			}
		}
	}
	return out
}

func displayFactorName(name string, l domain.HazardLabels) string {
	for i, key := range l.FactorKeys {
		if strings.EqualFold(name, key) {
			return l.FactorNames[i]
		}
	}
	return name
}

// flatten turns [a, b, ...] or [[a, b], [c, d]] into a flat list.
func flatten(v any) []any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, GridSize)
	for _, item := range items {
		if row, ok := item.([]any); ok {
			out = append(out, row...)
			continue
		}
		out = append(out, item)
	}
	return out
}

func firstNumber(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := lookupFold(obj, k); ok {
			if f, ok := asFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookupFold(obj, k); ok {
			if s, ok := asString(v); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func lookupFold(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// asFloat accepts JSON numbers and numeric strings such as "72" or "72%".
func asFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// asScore coerces v to an integer risk score in [0,100].
func asScore(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(clamp(f, 0, 100))), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
