package msdata

import (
	"sort"
)

// PeptideHit is one ranked hypothesis of a PeptideIdentification
type PeptideHit struct {
	Sequence   string
	Score      float64
	Rank       int
	Charge     int
	Accessions []string // Protein accessions the peptide maps to
	Meta       MetaInfo
}

// PeptideIdentification holds the hits for a single spectrum
type PeptideIdentification struct {
	Identifier            string // Identifier of the identification run
	RT                    float64
	MZ                    float64
	ScoreType             string
	HigherScoreBetter     bool
	SignificanceThreshold float64
	Hits                  []PeptideHit
	Meta                  MetaInfo
}

// UID returns the stable identifier, or "" if absent
func (p *PeptideIdentification) UID() string {
	uid, _ := p.Meta.String(MetaUID)
	return uid
}

// SortHits orders the hits by score, best first, and renumbers
// their ranks starting at 1
func (p *PeptideIdentification) SortHits() {
	sort.SliceStable(p.Hits, func(i, j int) bool {
		if p.HigherScoreBetter {
			return p.Hits[i].Score > p.Hits[j].Score
		}
		return p.Hits[i].Score < p.Hits[j].Score
	})
	for i := range p.Hits {
		p.Hits[i].Rank = i + 1
	}
}

// SearchParameters are the parameters of the database search that
// produced an identification run
type SearchParameters struct {
	DB                        string
	DBVersion                 string
	Enzyme                    string
	MissedCleavages           int
	FragmentMassTolerance     float64
	FragmentMassTolerancePPM  bool
	PrecursorMassTolerance    float64
	PrecursorMassTolerancePPM bool
	Charges                   string
	FixedModifications        []string
	VariableModifications     []string
}

// ProteinHit is a protein that peptide hits of the run can map to
type ProteinHit struct {
	Accession string
	Score     float64
	Sequence  string
	Meta      MetaInfo
}

// ProteinIdentification describes an identification run
type ProteinIdentification struct {
	Identifier            string
	SearchEngine          string
	SearchEngineVersion   string
	Date                  string
	ScoreType             string
	HigherScoreBetter     bool
	SignificanceThreshold float64
	SearchParameters      SearchParameters
	Hits                  []ProteinHit
	Meta                  MetaInfo
}

// PrimaryMSRunPath returns the spectra files the run was made from
func (p *ProteinIdentification) PrimaryMSRunPath() []string {
	v, ok := p.Meta.Get(MetaSpectraData)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case string:
		if t == `` {
			return nil
		}
		return []string{t}
	}
	return nil
}

// SetPrimaryMSRunPath stores the spectra files the run was made from
func (p *ProteinIdentification) SetPrimaryMSRunPath(paths []string) {
	p.Meta.Set(MetaSpectraData, paths)
}

// primaryMSRunPath collects the run paths of all runs, in order and
// without duplicates
func primaryMSRunPath(runs []ProteinIdentification) []string {
	var paths []string
	seen := make(map[string]bool)
	for i := range runs {
		for _, p := range runs[i].PrimaryMSRunPath() {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// Clone returns a deep copy of the identification
func (p *PeptideIdentification) Clone() PeptideIdentification {
	c := *p
	c.Meta = p.Meta.Clone()
	c.Hits = make([]PeptideHit, len(p.Hits))
	for i, h := range p.Hits {
		c.Hits[i] = h
		c.Hits[i].Accessions = append([]string(nil), h.Accessions...)
		c.Hits[i].Meta = h.Meta.Clone()
	}
	return c
}
