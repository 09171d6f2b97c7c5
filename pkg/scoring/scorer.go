// Package scoring compares a performer's transcript with the target lyrics.
//
// Both texts are normalized into token sequences ([Normalizer]), aligned
// ([Align]) and folded into a [Result]: an integer score in 0..100 and one
// [Span] per rendered token. Fuzzy credit on replaced tokens comes from a
// pluggable [Similarity] function; without one only exact matches score.
//
// Scoring never fails. Degenerate input (empty target, empty performance)
// yields a valid zero-valued result.
package scoring

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/antzucaro/matchr"
)

// Default scoring parameters, as returned by [DefaultConfig].
const (
	DefaultNearThreshold    = 0.85
	DefaultPartialThreshold = 0.70
	DefaultNearCredit       = 1.0
	DefaultPartialCredit    = 0.8
	DefaultBonus            = 10
	DefaultBonusBelow       = 50
	DefaultBonusRatioMin    = 0.8
	DefaultBonusRatioMax    = 1.2
)

// Similarity returns how alike two tokens are, from 0 (unrelated) to 1
// (identical).
type Similarity func(a, b string) float64

// JaroWinkler is the default [Similarity]. It tolerates the typos and
// phonetic respellings speech recognizers produce.
func JaroWinkler(a, b string) float64 {
	return matchr.JaroWinkler(a, b, false)
}

// Tag classifies a rendered token.
type Tag string

const (
	// TagNone marks an unannotated token (the target had nothing to score).
	TagNone Tag = ""
	// TagExact marks a token equal to its target.
	TagExact Tag = "exact"
	// TagNear marks a replaced token above the near threshold.
	TagNear Tag = "near"
	// TagPartial marks a replaced token above the partial threshold.
	TagPartial Tag = "partial"
	// TagMiss marks a replaced token that earned no credit.
	TagMiss Tag = "miss"
	// TagExtra marks a performed token with no target counterpart.
	TagExtra Tag = "extra"
	// TagMissing marks a target token the performance skipped.
	TagMissing Tag = "missing"
)

// Span is one rendered token of a comparison. Token is the performed token
// for every tag except [TagMissing], where it is the skipped target token.
type Span struct {
	Token string `json:"token"`
	Tag   Tag    `json:"tag"`
}

// Result is the outcome of one comparison.
type Result struct {
	// Score is the final percentage in 0..100, bonus included.
	Score int `json:"score"`
	// RawScore is the percentage before the bonus.
	RawScore int `json:"raw_score"`
	// Weighted is the accumulated credit; Score is derived from
	// Weighted / TargetTokens.
	Weighted float64 `json:"weighted"`
	// PerformedTokens and TargetTokens are the normalized sequence lengths.
	PerformedTokens int `json:"performed_tokens"`
	TargetTokens    int `json:"target_tokens"`
	// Spans is the annotated comparison in performance order.
	Spans []Span `json:"comparison"`
}

// Config holds the tunable scoring parameters. Every field is used as given,
// zero included: Bonus 0 disables the bonus. Start from [DefaultConfig] to
// override single parameters.
type Config struct {
	// NearThreshold is the similarity a replaced token must exceed to earn
	// NearCredit. Default: 0.85.
	NearThreshold float64 `yaml:"near_threshold"`

	// PartialThreshold is the similarity a replaced token must exceed to
	// earn PartialCredit. Default: 0.70.
	PartialThreshold float64 `yaml:"partial_threshold"`

	// NearCredit and PartialCredit are awarded per replaced token.
	// Defaults: 1.0 and 0.8.
	NearCredit    float64 `yaml:"near_credit"`
	PartialCredit float64 `yaml:"partial_credit"`

	// Bonus is added once to scores below BonusBelow when the
	// performed/target token ratio lies strictly inside
	// (BonusRatioMin, BonusRatioMax). Defaults: 10, 50, 0.8, 1.2.
	Bonus         int     `yaml:"bonus"`
	BonusBelow    int     `yaml:"bonus_below"`
	BonusRatioMin float64 `yaml:"bonus_ratio_min"`
	BonusRatioMax float64 `yaml:"bonus_ratio_max"`

	// Similarity grades replaced tokens. When nil every replaced token is
	// a miss and only exact matches earn credit.
	Similarity Similarity `yaml:"-"`
}

// DefaultConfig returns the standard scoring parameters with Jaro-Winkler
// similarity installed.
func DefaultConfig() Config {
	return Config{
		NearThreshold:    DefaultNearThreshold,
		PartialThreshold: DefaultPartialThreshold,
		NearCredit:       DefaultNearCredit,
		PartialCredit:    DefaultPartialCredit,
		Bonus:            DefaultBonus,
		BonusBelow:       DefaultBonusBelow,
		BonusRatioMin:    DefaultBonusRatioMin,
		BonusRatioMax:    DefaultBonusRatioMax,
		Similarity:       JaroWinkler,
	}
}

// Validate reports parameters that cannot produce a coherent score: a
// threshold outside [0, 1], a partial threshold above the near threshold,
// negative credits or bonus values, or an empty bonus ratio window.
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"near_threshold":    c.NearThreshold,
		"partial_threshold": c.PartialThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("scoring: %s %.2f is out of range [0, 1]", name, v))
		}
	}
	if c.PartialThreshold > c.NearThreshold {
		errs = append(errs, fmt.Errorf("scoring: partial_threshold %.2f exceeds near_threshold %.2f", c.PartialThreshold, c.NearThreshold))
	}
	if c.NearCredit < 0 || c.PartialCredit < 0 || c.Bonus < 0 || c.BonusBelow < 0 {
		errs = append(errs, errors.New("scoring: credits and bonus values must not be negative"))
	}
	if c.BonusRatioMin >= c.BonusRatioMax {
		errs = append(errs, fmt.Errorf("scoring: bonus_ratio_min %.2f must be below bonus_ratio_max %.2f", c.BonusRatioMin, c.BonusRatioMax))
	}
	return errors.Join(errs...)
}

// Option configures an [Engine].
type Option func(*Engine)

// WithNormalizer replaces the default [Normalizer].
func WithNormalizer(n *Normalizer) Option {
	return func(e *Engine) { e.norm = n }
}

// WithLogger sets the logger used for debug output. Defaults to
// [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine scores performances. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	cfg  Config
	norm *Normalizer
	log  *slog.Logger
}

// NewEngine returns an Engine using cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:  cfg,
		norm: defaultNormalizer,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Config returns the configuration the engine scores with.
func (e *Engine) Config() Config { return e.cfg }

// Tokens normalizes text the way [Engine.Score] does.
func (e *Engine) Tokens(text string) []string { return e.norm.Tokens(text) }

// Score normalizes both texts and compares them.
func (e *Engine) Score(performed, target string) Result {
	return e.ScoreTokens(e.norm.Tokens(performed), e.norm.Tokens(target))
}

// ScoreTokens compares two already normalized token sequences.
func (e *Engine) ScoreTokens(performed, target []string) Result {
	res := Result{
		PerformedTokens: len(performed),
		TargetTokens:    len(target),
	}
	if len(target) == 0 {
		res.Spans = make([]Span, len(performed))
		for i, t := range performed {
			res.Spans[i] = Span{Token: t, Tag: TagNone}
		}
		return res
	}

	for _, op := range Align(performed, target) {
		spans, credit := e.fold(op, performed, target)
		res.Spans = append(res.Spans, spans...)
		res.Weighted += credit
	}

	res.RawScore = min(100, int(res.Weighted/float64(len(target))*100))
	res.Score = e.withBonus(res.RawScore, len(performed), len(target))

	e.log.Debug("scoring: compared performance",
		"performed_tokens", len(performed),
		"target_tokens", len(target),
		"weighted", res.Weighted,
		"raw_score", res.RawScore,
		"score", res.Score,
	)
	return res
}

// fold renders one opcode and returns the spans it produces along with the
// credit they earn.
func (e *Engine) fold(op Opcode, performed, target []string) ([]Span, float64) {
	switch op.Op {
	case OpEqual:
		return tagAll(performed[op.P1:op.P2], TagExact), float64(op.P2 - op.P1)
	case OpDelete:
		return tagAll(performed[op.P1:op.P2], TagExtra), 0
	case OpInsert:
		return tagAll(target[op.T1:op.T2], TagMissing), 0
	case OpReplace:
		return e.replace(performed[op.P1:op.P2], target[op.T1:op.T2])
	default:
		return nil, 0
	}
}

// replace pairs both runs positionally and grades each pair. The unpaired
// tail of the longer run earns nothing.
func (e *Engine) replace(perf, tgt []string) ([]Span, float64) {
	spans := make([]Span, 0, max(len(perf), len(tgt)))
	var credit float64
	for i := range max(len(perf), len(tgt)) {
		switch {
		case i >= len(tgt):
			spans = append(spans, Span{Token: perf[i], Tag: TagExtra})
		case i >= len(perf):
			spans = append(spans, Span{Token: tgt[i], Tag: TagMissing})
		default:
			tag, c := e.grade(perf[i], tgt[i])
			spans = append(spans, Span{Token: perf[i], Tag: tag})
			credit += c
		}
	}
	return spans, credit
}

func (e *Engine) grade(performed, target string) (Tag, float64) {
	if e.cfg.Similarity == nil {
		return TagMiss, 0
	}
	sim := e.cfg.Similarity(performed, target)
	switch {
	case sim > e.cfg.NearThreshold:
		return TagNear, e.cfg.NearCredit
	case sim > e.cfg.PartialThreshold:
		return TagPartial, e.cfg.PartialCredit
	default:
		return TagMiss, 0
	}
}

// withBonus applies the one-off bonus for performances that covered about
// the right number of words but scored low, then clamps to 100.
func (e *Engine) withBonus(score, performed, target int) int {
	ratio := float64(performed) / float64(target)
	if score < e.cfg.BonusBelow && ratio > e.cfg.BonusRatioMin && ratio < e.cfg.BonusRatioMax {
		score += e.cfg.Bonus
	}
	return min(100, score)
}

func tagAll(tokens []string, tag Tag) []Span {
	spans := make([]Span, len(tokens))
	for i, t := range tokens {
		spans[i] = Span{Token: t, Tag: tag}
	}
	return spans
}

var defaultEngine = NewEngine(DefaultConfig())

// Score compares performed against target with [DefaultConfig].
func Score(performed, target string) Result {
	return defaultEngine.Score(performed, target)
}
