// Package changepoint finds coarse boundaries in a line stream by comparing
// smoothed composite feature vectors of adjacent lines.
package changepoint

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/kugiri/internal/embedding"
	"github.com/hyperjump/kugiri/internal/features"
	"github.com/hyperjump/kugiri/internal/models"
	"github.com/hyperjump/kugiri/internal/vector"
	"github.com/hyperjump/kugiri/pkg/utils"
)

// DefaultLabelVocab is the classifier vocabulary one-hot encoded per line.
var DefaultLabelVocab = []string{"JOB TITLE", "COMPANY LINE", "PROFESSIONAL EXPERIENCE"}

// Groups selects the components of a composite vector.
type Groups struct {
	Classifier bool `yaml:"classifier"`
	Entities   bool `yaml:"entities"`
	Formatting bool `yaml:"formatting"`
	Embedding  bool `yaml:"embedding"`
}

// Options tunes segmentation.
type Options struct {
	Window     int      `yaml:"window"`
	Threshold  float64  `yaml:"threshold"`
	Smooth     bool     `yaml:"smooth"`
	Groups     Groups   `yaml:"groups"`
	LabelVocab []string `yaml:"label_vocab"`
}

// DefaultOptions returns window 5, threshold 0.05, smoothing on and every
// group but the embedding.
func DefaultOptions() Options {
	return Options{
		Window:     5,
		Threshold:  0.05,
		Smooth:     true,
		Groups:     Groups{Classifier: true, Entities: true, Formatting: true},
		LabelVocab: append([]string(nil), DefaultLabelVocab...),
	}
}

// CompositeVector encodes one line. Layout, for enabled groups in order:
// classifier score and one-hot label over vocab; organization, location and
// person counts; bullet, all-caps and colon flags; the embedding.
func CompositeVector(l models.Line, emb []float32, o Options) []float64 {
	var v []float64
	if o.Groups.Classifier {
		v = append(v, l.Classification.Score)
		for _, label := range o.LabelVocab {
			v = append(v, flag(l.Classification.Label == label))
		}
	}
	if o.Groups.Entities {
		var org, loc, per float64
		for _, e := range l.Entities {
			switch models.NormalizeEntityLabel(e.Label) {
			case models.EntityOrganization:
				org++
			case models.EntityLocation:
				loc++
			case models.EntityPerson:
				per++
			}
		}
		v = append(v, org, loc, per)
	}
	if o.Groups.Formatting {
		v = append(v,
			flag(l.ContainsBullet),
			flag(features.IsAllCaps(l.Text)),
			flag(features.HasColon(l.Text)))
	}
	if o.Groups.Embedding {
		for _, x := range emb {
			v = append(v, float64(x))
		}
	}
	return v
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Smooth averages each vector with its neighbors in a centered window of
// the given width. The window is truncated at both ends of the sequence.
func Smooth(vs [][]float64, window int) [][]float64 {
	half := window / 2
	out := make([][]float64, len(vs))
	for i := range vs {
		lo, hi := max(0, i-half), min(len(vs), i+half+1)
		avg := make([]float64, len(vs[i]))
		for j := lo; j < hi; j++ {
			for k := range avg {
				if k < len(vs[j]) {
					avg[k] += vs[j][k]
				}
			}
		}
		for k := range avg {
			avg[k] /= float64(hi - lo)
		}
		out[i] = avg
	}
	return out
}

// Distances returns the Euclidean distance between each adjacent pair;
// element i-1 compares vectors i-1 and i.
func Distances(vs [][]float64) []float64 {
	if len(vs) < 2 {
		return nil
	}
	out := make([]float64, len(vs)-1)
	for i := 1; i < len(vs); i++ {
		out[i-1] = vector.Euclidean(vs[i-1], vs[i])
	}
	return out
}

// Boundaries returns, ascending, every index i whose distance from i-1
// exceeds threshold.
func Boundaries(distances []float64, threshold float64) []int {
	var out []int
	for i, d := range distances {
		if d > threshold {
			out = append(out, i+1)
		}
	}
	return out
}

// Segments cuts texts at the boundaries into contiguous segments.
func Segments(texts []string, boundaries []int) []models.Segment {
	if len(texts) == 0 {
		return nil
	}
	var out []models.Segment
	start := 0
	for _, b := range boundaries {
		if b <= start || b >= len(texts) {
			continue
		}
		out = append(out, models.Segment{Start: start, End: b, Lines: texts[start:b]})
		start = b
	}
	return append(out, models.Segment{Start: start, End: len(texts), Lines: texts[start:]})
}

// Result is the outcome of one segmentation.
type Result struct {
	Boundaries []int            `json:"boundaries"`
	Distances  []float64        `json:"distances"`
	Segments   []models.Segment `json:"segments"`
}

// Segmenter detects change points over featurized lines.
type Segmenter struct {
	embedder embedding.Embedder
	opts     Options
	logger   *zap.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Segmenter) { s.logger = l }
}

// WithOptions replaces DefaultOptions. A non-positive window or an empty
// vocabulary keeps the default.
func WithOptions(o Options) Option {
	return func(s *Segmenter) {
		d := DefaultOptions()
		if o.Window <= 0 {
			o.Window = d.Window
		}
		if len(o.LabelVocab) == 0 {
			o.LabelVocab = d.LabelVocab
		}
		s.opts = o
	}
}

// NewSegmenter returns a Segmenter. emb may be nil when the embedding group
// is disabled.
func NewSegmenter(emb embedding.Embedder, opts ...Option) *Segmenter {
	s := &Segmenter{embedder: emb, opts: DefaultOptions()}
	for _, o := range opts {
		o(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Segment builds composite vectors for lines, optionally smooths them and
// reports boundaries. A failed embedding call drops the embedding group for
// the whole document.
func (s *Segmenter) Segment(ctx context.Context, lines []models.Line) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}

	var embs [][]float32
	if s.opts.Groups.Embedding && s.embedder != nil && len(lines) > 0 {
		v, err := s.embedder.EmbedBatch(ctx, texts)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			s.logger.Warn("line embedding failed, continuing without it", zap.Error(err))
		case len(v) != len(lines):
			s.logger.Warn("embedding count mismatch, continuing without it",
				zap.Int("lines", len(lines)), zap.Int("vectors", len(v)))
		default:
			embs = v
		}
	}

	vs := make([][]float64, len(lines))
	for i, l := range lines {
		var e []float32
		if embs != nil {
			e = embs[i]
		}
		vs[i] = CompositeVector(l, e, s.opts)
	}
	if s.opts.Smooth {
		vs = Smooth(vs, s.opts.Window)
	}
	dist := Distances(vs)
	res := &Result{Distances: dist, Boundaries: Boundaries(dist, s.opts.Threshold)}
	res.Segments = Segments(texts, res.Boundaries)

	s.logger.Debug("change points detected",
		zap.Int("lines", len(lines)),
		zap.Int("boundaries", len(res.Boundaries)),
		zap.Float64("threshold", s.opts.Threshold))
	return res, nil
}
