// Package idconflict reduces the identifications of each consensus
// feature to a single one
package idconflict

import (
	"github.com/524D/mzqc/internal/msdata"
)

// Resolve keeps, for every consensus feature with more than one
// identification, the identification whose top hit scores best.
// Ties keep the first. Hits of every remaining identification are
// sorted by score.
func Resolve(cmap *msdata.ConsensusMap) {
	for i := range cmap.Features {
		ids := cmap.Features[i].PeptideIdentifications
		for j := range ids {
			ids[j].SortHits()
		}
		if len(ids) < 2 {
			continue
		}
		best := -1
		for j := range ids {
			if len(ids[j].Hits) == 0 {
				continue
			}
			if best < 0 || better(&ids[j], &ids[best]) {
				best = j
			}
		}
		if best < 0 {
			best = 0
		}
		cmap.Features[i].PeptideIdentifications = []msdata.PeptideIdentification{ids[best]}
	}
}

// better reports whether the top hit of a scores better than that of b
func better(a, b *msdata.PeptideIdentification) bool {
	sa, sb := a.Hits[0].Score, b.Hits[0].Score
	if a.HigherScoreBetter {
		return sa > sb
	}
	return sa < sb
}
