package features

import "gocv.io/x/gocv"

// Candidate is one nearest-neighbour match: the train-set index and its
// distance to a particular query descriptor.
type Candidate struct {
	TrainIdx int
	Distance float64
}

// MatchPair holds the two nearest train-set candidates for one query
// descriptor, as produced by a k=2 nearest-neighbour match.
type MatchPair struct {
	QueryIdx int
	Best     Candidate
	Second   Candidate
}

// Correspondence is a single accepted query<->train descriptor pairing
// that survived the ratio test.
type Correspondence struct {
	QueryIdx int
	TrainIdx int
}

// DefaultNNRatio is Lowe's ratio-test threshold used when the caller has
// not configured one explicitly.
const DefaultNNRatio = 0.7

// Match finds, for every descriptor row in query, its two nearest
// neighbours in train. Query rows with fewer than two train candidates
// (an empty or single-row train set) are omitted.
func (d *Detector) Match(query, train gocv.Mat) []MatchPair {
	if query.Empty() || train.Empty() || train.Rows() < 2 {
		return nil
	}

	raw := d.matcher.KnnMatch(query, train, 2)
	pairs := make([]MatchPair, 0, len(raw))

	for _, candidates := range raw {
		if len(candidates) < 2 {
			continue
		}

		pairs = append(pairs, MatchPair{
			QueryIdx: candidates[0].QueryIdx,
			Best:     Candidate{TrainIdx: candidates[0].TrainIdx, Distance: float64(candidates[0].Distance)},
			Second:   Candidate{TrainIdx: candidates[1].TrainIdx, Distance: float64(candidates[1].Distance)},
		})
	}

	return pairs
}

// RatioTest rejects any pair where best.distance >= nnRatio *
// second.distance, returning the surviving query<->train correspondences.
// nnRatio must lie in (0,1); DefaultNNRatio (0.7) is used if nnRatio <= 0.
func RatioTest(pairs []MatchPair, nnRatio float64) []Correspondence {
	if nnRatio <= 0 {
		nnRatio = DefaultNNRatio
	}

	out := make([]Correspondence, 0, len(pairs))

	for _, p := range pairs {
		if p.Best.Distance >= nnRatio*p.Second.Distance {
			continue
		}

		out = append(out, Correspondence{QueryIdx: p.QueryIdx, TrainIdx: p.Best.TrainIdx})
	}

	return out
}
