package action

import "github.com/fxlv/trireme/pkg/tokenring"

// RoundRunner executes one full count-per-split pipeline pass over
// [minToken, maxToken) at the given split exponent and returns every
// split's count. A pipeline's mapper task is single-assignment, so each
// round needs a fresh splitter/mapper/worker-pool instance; the caller
// supplies one closure per round rather than this package owning
// pipeline lifecycles itself.
type RoundRunner func(minToken, maxToken int64, splitExponent int) ([]SplitCount, error)

// NarrowingStep records one round of find-wide-partitions: the range
// searched, the exponent used, and the hottest sub-range found in it.
type NarrowingStep struct {
	Searched tokenring.Range
	Exponent int
	Hottest  tokenring.Range
	Count    int64
}

// FindWidePartitions narrows recursively: repeatedly count-per-split
// over the current hottest sub-range, using a one-smaller split exponent
// each round, until minExponent is reached or a round can no longer
// narrow (the hottest sub-range returned is the whole searched range,
// i.e. it was already a single split).
func FindWidePartitions(run RoundRunner, minToken, maxToken int64, startExponent, minExponent int) ([]NarrowingStep, error) {
	var steps []NarrowingStep
	lo, hi := minToken, maxToken

	for exp := startExponent; exp >= minExponent; exp-- {
		counts, err := run(lo, hi, exp)
		if err != nil {
			return steps, err
		}

		hottest, ok := hottestSplit(counts)
		if !ok {
			break
		}

		steps = append(steps, NarrowingStep{
			Searched: tokenring.Range{Lo: lo, Hi: hi},
			Exponent: exp,
			Hottest:  hottest.Range,
			Count:    hottest.Count,
		})

		if hottest.Range.Lo == lo && hottest.Range.Hi == hi {
			break
		}
		lo, hi = hottest.Range.Lo, hottest.Range.Hi
	}
	return steps, nil
}

func hottestSplit(counts []SplitCount) (SplitCount, bool) {
	var best SplitCount
	found := false
	for _, c := range counts {
		if !found || c.Count > best.Count {
			best = c
			found = true
		}
	}
	return best, found
}
