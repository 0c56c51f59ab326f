package domain

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultBaselineRisk is the prior used when no regional profile matches.
const DefaultBaselineRisk = 45

//go:embed knowledge.yaml
var defaultKnowledgeYAML []byte

// SeismicProfile is the static prior for a named region.
type SeismicProfile struct {
	BaselineRisk      int      `yaml:"baseline_risk" toml:"baseline_risk"`
	Description       string   `yaml:"description" toml:"description"`
	GeologicalFactors []string `yaml:"geological_factors" toml:"geological_factors"`
	StructuralThemes  []string `yaml:"structural_themes" toml:"structural_themes"`
}

// Narrative holds the generic phrase lists for one hazard.
type Narrative struct {
	Reason    string   `yaml:"reason" toml:"reason"`
	Prime     []string `yaml:"prime" toml:"prime"`
	Secondary []string `yaml:"secondary" toml:"secondary"`
	Tertiary  []string `yaml:"tertiary" toml:"tertiary"`
}

type regionEntry struct {
	Key            string `yaml:"key" toml:"key"`
	SeismicProfile `yaml:",inline" toml:",inline"`
}

type knowledgeFile struct {
	Regions []regionEntry            `yaml:"regions" toml:"regions"`
	Generic map[HazardType]Narrative `yaml:"generic" toml:"generic"`
}

// KnowledgeBase is the read-only regional and narrative table. It is built
// once at startup and shared by every analysis; nothing mutates it afterwards.
type KnowledgeBase struct {
	regions []regionEntry
	generic map[HazardType]Narrative
}

// DefaultKnowledgeBase returns the embedded table.
func DefaultKnowledgeBase() *KnowledgeBase {
	kb, err := parseKnowledge(defaultKnowledgeYAML, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded knowledge base: %v", err))
	}
	return kb
}

// LoadKnowledgeBase reads a YAML (.yaml, .yml) or TOML (.toml) table from path.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}
	return parseKnowledge(data, strings.ToLower(filepath.Ext(path)))
}

func parseKnowledge(data []byte, ext string) (*KnowledgeBase, error) {
	var f knowledgeFile
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parse knowledge base: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("parse knowledge base: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported knowledge base format %q", ext)
	}

	if err := f.validate(); err != nil {
		return nil, err
	}

	regions := make([]regionEntry, len(f.Regions))
	for i, r := range f.Regions {
		r.Key = strings.ToLower(strings.TrimSpace(r.Key))
		regions[i] = r
	}
	return &KnowledgeBase{regions: regions, generic: f.Generic}, nil
}

func (f *knowledgeFile) validate() error {
	for i, r := range f.Regions {
		if strings.TrimSpace(r.Key) == "" {
			return fmt.Errorf("knowledge base region %d: empty key", i)
		}
		if r.BaselineRisk < 0 || r.BaselineRisk > 100 {
			return fmt.Errorf("knowledge base region %q: baseline_risk %d out of range", r.Key, r.BaselineRisk)
		}
		if len(r.GeologicalFactors) == 0 || len(r.StructuralThemes) == 0 {
			return fmt.Errorf("knowledge base region %q: factor lists must not be empty", r.Key)
		}
	}
	for _, h := range HazardTypes {
		n, ok := f.Generic[h]
		if !ok {
			return fmt.Errorf("knowledge base: missing generic narrative for %s", h)
		}
		if n.Reason == "" || len(n.Prime) == 0 || len(n.Secondary) == 0 || len(n.Tertiary) == 0 {
			return errors.New("knowledge base: generic narrative for " + string(h) + " is incomplete")
		}
	}
	return nil
}

// Lookup returns the first profile whose key is a substring of the
// lower-cased, trimmed location. Table order decides ties.
func (kb *KnowledgeBase) Lookup(location string) (SeismicProfile, bool) {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return SeismicProfile{}, false
	}
	for _, r := range kb.regions {
		if strings.Contains(loc, r.Key) {
			return r.SeismicProfile, true
		}
	}
	return SeismicProfile{}, false
}

// Narrative returns the generic phrase lists for h.
func (kb *KnowledgeBase) Narrative(h HazardType) Narrative {
	if n, ok := kb.generic[h]; ok {
		return n
	}
	return kb.generic[HazardSeismic]
}

// Regions returns the number of regional profiles.
func (kb *KnowledgeBase) Regions() int { return len(kb.regions) }

// SeedScore draws a cell score around baseline: baseline + U(-15,+15),
// rounded and clamped to [5,99].
func SeedScore(baseline int, rnd Rand) int {
	variation := rnd.Float64()*30 - 15
	return clampInt(int(roundHalfUp(float64(baseline)+variation)), 5, 99)
}

// ProfileDetails picks the narrative for one knowledge-seeded cell. The
// tertiary line is drawn from the generic narrative's urban factors.
func ProfileDetails(p SeismicProfile, n Narrative, rnd Rand) ChunkDetails {
	return ChunkDetails{
		Prime:     Pick(p.GeologicalFactors, rnd),
		Secondary: Pick(p.StructuralThemes, rnd),
		Tertiary:  Pick(n.Tertiary, rnd),
	}
}

// GenericDetails picks the narrative for one cell without a regional profile.
func GenericDetails(n Narrative, rnd Rand) ChunkDetails {
	return ChunkDetails{
		Prime:     Pick(n.Prime, rnd),
		Secondary: Pick(n.Secondary, rnd),
		Tertiary:  Pick(n.Tertiary, rnd),
	}
}
