package freeform

import (
	"math"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kugiri/internal/vector"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// DefaultSeparator joins the sentences of a cluster that fits the token cap.
const DefaultSeparator = "\n---\n"

// Separator is written as a double-quoted scalar so leading and trailing
// newlines survive a YAML round trip.
type Separator string

// MarshalYAML implements yaml.Marshaler.
func (s Separator) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.DoubleQuotedStyle,
		Value: string(s),
	}, nil
}

// Params holds the tunable constants of the chunker.
type Params struct {
	// Percentile of the pairwise similarities used as the edge threshold.
	Percentile float64 `yaml:"percentile"`
	LowerBound float64 `yaml:"lower_bound"`
	UpperBound float64 `yaml:"upper_bound"`

	// Resolution = BaseResolution + K1*ln(n+T+1) + K2*(1-avgSimilarity),
	// clamped to [MinResolution, MaxResolution].
	BaseResolution float64 `yaml:"base_resolution"`
	K1             float64 `yaml:"k1"`
	K2             float64 `yaml:"k2"`
	MinResolution  float64 `yaml:"min_resolution"`
	MaxResolution  float64 `yaml:"max_resolution"`

	MaxTokens int    `yaml:"max_tokens"`
	Separator Separator `yaml:"separator"`
}

// DefaultParams returns the standard chunking constants.
func DefaultParams() Params {
	return Params{
		Percentile:     75,
		LowerBound:     0.3,
		UpperBound:     0.7,
		BaseResolution: 0.6,
		K1:             0.03,
		K2:             0.2,
		MinResolution:  0.4,
		MaxResolution:  1.5,
		MaxTokens:      300,
		Separator:      DefaultSeparator,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Percentile <= 0 {
		p.Percentile = d.Percentile
	}
	if p.LowerBound == 0 && p.UpperBound == 0 {
		p.LowerBound, p.UpperBound = d.LowerBound, d.UpperBound
	}
	if p.BaseResolution == 0 && p.K1 == 0 && p.K2 == 0 {
		p.BaseResolution, p.K1, p.K2 = d.BaseResolution, d.K1, d.K2
	}
	if p.MinResolution == 0 && p.MaxResolution == 0 {
		p.MinResolution, p.MaxResolution = d.MinResolution, d.MaxResolution
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.Separator == "" {
		p.Separator = d.Separator
	}
	return p
}

// DynamicThreshold returns the configured percentile of the off-diagonal
// similarities clamped to [LowerBound, UpperBound]. Fewer than two
// sentences yield LowerBound.
func DynamicThreshold(sim [][]float64, p Params) float64 {
	pairs := vector.UpperTriangle(sim)
	if len(pairs) == 0 {
		return p.LowerBound
	}
	t := vector.Percentile(pairs, p.Percentile)
	if math.IsNaN(t) {
		return p.LowerBound
	}
	return utils.Clamp(t, p.LowerBound, p.UpperBound)
}

// DynamicResolution returns the clustering resolution for n sentences with
// totalTokens estimated tokens and mean pairwise similarity avgSim.
func DynamicResolution(n, totalTokens int, avgSim float64, p Params) float64 {
	r := p.BaseResolution + p.K1*math.Log(float64(n+totalTokens+1)) + p.K2*(1-avgSim)
	if math.IsNaN(r) {
		return p.MinResolution
	}
	return utils.Clamp(r, p.MinResolution, p.MaxResolution)
}
