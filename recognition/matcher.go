package recognition

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MatchResult classifies one detected embedding. An unmatched face is a
// normal outcome, not an error: Matched is false and Name is empty.
type MatchResult struct {
	Name       string  `json:"name"`
	Matched    bool    `json:"matched"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Recognized filters match results down to the identities confident enough
// to act on: matched, and strictly above the caller's confidence gate.
// Duplicate sightings of the same identity collapse to one entry keeping the
// highest confidence.
func Recognized(results []MatchResult, minConfidence float64) []MatchResult {
	best := make(map[string]MatchResult)
	order := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Matched || r.Confidence <= minConfidence {
			continue
		}
		prev, seen := best[r.Name]
		if !seen {
			order = append(order, r.Name)
		}
		if !seen || r.Confidence > prev.Confidence {
			best[r.Name] = r
		}
	}

	out := make([]MatchResult, 0, len(best))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}

// Match classifies each detected embedding against the known set using exact
// nearest-neighbor search under Euclidean distance. A candidate is accepted
// only if its minimum distance is at most tolerance; confidence is
// 1 − distance, floored at zero. Results come back one per input, in input
// order. An empty known set yields an empty result slice.
//
// Ties on the minimum distance resolve deterministically: candidates are
// scanned in sorted name order and only a strictly smaller distance displaces
// the current best, so the lexicographically first name wins.
//
// Linear scan is deliberate at classroom scale; swap the body for a spatial
// index if the known set ever grows past a few thousand identities.
func Match(detected [][]float64, known map[string][]float64, tolerance float64) []MatchResult {
	if len(known) == 0 {
		return []MatchResult{}
	}

	results := make([]MatchResult, 0, len(detected))
	for _, probe := range detected {
		name, dist := Nearest(known, probe)

		r := MatchResult{Distance: dist}
		if name != "" && dist <= tolerance {
			r.Name = name
			r.Matched = true
			r.Confidence = 1 - dist
			if r.Confidence < 0 {
				r.Confidence = 0
			}
		}
		results = append(results, r)
	}
	return results
}

// Nearest is the substitution point for the search strategy: it returns the
// known identity closest to probe and its Euclidean distance. Candidates
// whose vector length differs from the probe are skipped; if none remain,
// the name is empty and the distance -1. Scans in sorted name order so
// equal distances resolve the same way every call.
func Nearest(known map[string][]float64, probe []float64) (string, float64) {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)

	bestName := ""
	bestDist := -1.0
	for _, name := range names {
		vec := known[name]
		if len(vec) != len(probe) {
			continue
		}
		d := floats.Distance(probe, vec, 2)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			bestName = name
		}
	}
	return bestName, bestDist
}
