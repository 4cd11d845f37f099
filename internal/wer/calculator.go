package wer

import "math"

const (
	// MaxConfidencePenalty is the additive WER penalty applied at zero
	// confidence.
	MaxConfidencePenalty = 0.1

	minConfidence = 0.0
	maxConfidence = 100.0
)

// Result is the detailed breakdown of one reference/hypothesis comparison.
type Result struct {
	WER             float64     `json:"wer"`
	TotalWords      int         `json:"totalWords"`
	Distance        int         `json:"distance"`
	Substitutions   int         `json:"substitutions"`
	Insertions      int         `json:"insertions"`
	Deletions       int         `json:"deletions"`
	Operations      []Operation `json:"operations"`
	ReferenceWords  []string    `json:"referenceWords"`
	HypothesisWords []string    `json:"hypothesisWords"`
}

// Errors returns the number of non-match operations.
func (r Result) Errors() int {
	return r.Substitutions + r.Insertions + r.Deletions
}

// Accuracy returns 1 - WER floored at zero.
func (r Result) Accuracy() float64 {
	return math.Max(0, 1-r.WER)
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithOracle replaces the expected-response oracle used by Session.
func WithOracle(o Oracle) Option {
	return func(c *Calculator) {
		if o != nil {
			c.oracle = o
		}
	}
}

// Calculator is the WER facade. It holds no mutable state: build one with
// New and share it.
type Calculator struct {
	oracle Oracle
}

// New returns a Calculator. Without options, Session uses KeywordOracle.
func New(opts ...Option) *Calculator {
	c := &Calculator{oracle: KeywordOracle{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WER returns distance / len(reference words).
//
// Empty inputs follow a fixed policy: both raw strings empty is 0, exactly
// one raw string empty is 1, a reference that normalizes to nothing is 0
// against a hypothesis that also normalizes to nothing and 1 otherwise.
// The result is not clamped: many insertions push it above 1.
func (c *Calculator) WER(reference, hypothesis string) float64 {
	if rate, ok := emptyInputRate(reference, hypothesis); ok {
		return rate
	}

	ref := Normalize(reference)
	hyp := Normalize(hypothesis)
	if len(ref) == 0 {
		return emptyReferenceRate(hyp)
	}

	return float64(Distance(ref, hyp)) / float64(len(ref))
}

// Detailed returns the full alignment breakdown. WER is rounded to two
// decimal places and follows the same empty-input policy as WER.
func (c *Calculator) Detailed(reference, hypothesis string) Result {
	ref := Normalize(reference)
	hyp := Normalize(hypothesis)

	distance, ops := Align(ref, hyp)

	res := Result{
		TotalWords:      len(ref),
		Distance:        distance,
		Operations:      ops,
		ReferenceWords:  ref,
		HypothesisWords: hyp,
	}
	for _, op := range ops {
		switch op.Kind {
		case OpSubstitution:
			res.Substitutions++
		case OpInsertion:
			res.Insertions++
		case OpDeletion:
			res.Deletions++
		}
	}

	switch rate, ok := emptyInputRate(reference, hypothesis); {
	case ok:
		res.WER = rate
	case len(ref) == 0:
		res.WER = emptyReferenceRate(hyp)
	default:
		res.WER = Round(float64(distance) / float64(len(ref)))
	}

	return res
}

// ConfidenceAdjusted adds up to MaxConfidencePenalty to the base WER as
// confidence drops from 100 to 0 and clamps the result to [0, 1].
// Confidence outside [0, 100] is clamped; NaN counts as zero confidence.
func (c *Calculator) ConfidenceAdjusted(reference, hypothesis string, confidence float64) float64 {
	confidence = ClampConfidence(confidence)
	base := c.WER(reference, hypothesis)
	penalty := (maxConfidence - confidence) / maxConfidence * MaxConfidencePenalty
	return clamp01(base + penalty)
}

// ClampConfidence maps any float onto [0, 100].
func ClampConfidence(confidence float64) float64 {
	if math.IsNaN(confidence) {
		return minConfidence
	}
	return math.Min(maxConfidence, math.Max(minConfidence, confidence))
}

// Round rounds to two decimal places.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

func emptyInputRate(reference, hypothesis string) (float64, bool) {
	switch {
	case reference == "" && hypothesis == "":
		return 0, true
	case reference == "" || hypothesis == "":
		return 1, true
	}
	return 0, false
}

func emptyReferenceRate(hyp []string) float64 {
	if len(hyp) == 0 {
		return 0
	}
	return 1
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
