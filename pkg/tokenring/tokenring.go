// Package tokenring implements the pure arithmetic of splitting a 64-bit
// token ring into disjoint sub-ranges. It has no dependency on the pipeline
// or on any database driver, so it can be property-tested in isolation.
package tokenring

import "math/big"

// MinToken and MaxToken are the global bounds of the ring: the full range
// of a signed 64-bit token.
const (
	MinToken int64 = -1 << 63
	MaxToken int64 = 1<<63 - 1
)

// Range is a half-open token interval [Lo, Hi).
type Range struct {
	Lo int64
	Hi int64
}

var bigTen = big.NewInt(10)

// width returns 10^exponent as an int64, saturating to MaxToken if the
// value would overflow. Exponent is clamped to 0 at the low end;
// the splitter never requests a negative exponent.
func width(exponent int) int64 {
	if exponent < 0 {
		exponent = 0
	}
	w := new(big.Int).Exp(bigTen, big.NewInt(int64(exponent)), nil)
	if !w.IsInt64() {
		return MaxToken
	}
	return w.Int64()
}

// addClamped returns lo+w, clamped to hi if the sum would overflow past it
// (checked via big.Int so it is correct regardless of how large w is).
func addClamped(lo, w, hi int64) int64 {
	sum := new(big.Int).Add(big.NewInt(lo), big.NewInt(w))
	if sum.Cmp(big.NewInt(hi)) >= 0 {
		return hi
	}
	return sum.Int64()
}

// Stepper produces the ordered sequence of [lo, hi) sub-ranges covering
// [lo, hi) one step at a time, without materialising the whole sequence.
// This is what the splitter stage drives; Splits below is a convenience
// wrapper over the same stepping logic, used by tests.
type Stepper struct {
	cur, hi int64
	width   int64
	done    bool
}

// NewStepper returns a Stepper over [lo, hi) with sub-ranges of width
// 10^exponent, except possibly the last which is truncated to hi.
func NewStepper(lo, hi int64, exponent int) *Stepper {
	return &Stepper{cur: lo, hi: hi, width: width(exponent)}
}

// Next returns the next sub-range, or ok=false once the stepper has covered
// the whole requested interval.
func (s *Stepper) Next() (Range, bool) {
	if s.done || s.cur >= s.hi {
		s.done = true
		return Range{}, false
	}
	next := addClamped(s.cur, s.width, s.hi)
	r := Range{Lo: s.cur, Hi: next}
	s.cur = next
	return r, true
}

// Splits eagerly materialises the full sequence of sub-ranges covering
// [lo, hi). Used by tests; the find-wide-partitions driver gets its
// per-split ranges from a pipeline pass (action.CountSplits) instead.
func Splits(lo, hi int64, exponent int) []Range {
	var out []Range
	s := NewStepper(lo, hi, exponent)
	for {
		r, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, r)
	}
	return out
}

// PredictedCount returns ceil((hi-lo)/10^exponent), the number of splits
// Splits/Stepper will produce over [lo, hi).
func PredictedCount(lo, hi int64, exponent int) int64 {
	if hi <= lo {
		return 0
	}
	span := new(big.Int).Sub(big.NewInt(hi), big.NewInt(lo))
	w := big.NewInt(width(exponent))
	q, r := new(big.Int).QuoRem(span, w, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}
