package qc

import (
	"fmt"

	"github.com/524D/mzqc/internal/msdata"
)

// MetaIsContaminant marks hits whose peptide occurs in a contaminant protein
const MetaIsContaminant = `is_contaminant`

// ContaminantsResult holds the contaminant ratios of one experiment
type ContaminantsResult struct {
	All                float64 // fraction of all top hits
	Assigned           float64 // fraction of the top hits assigned to features
	Unassigned         float64 // fraction of the unassigned top hits
	AssignedIntensity  float64 // intensity weighted fraction of features
	FeaturesWithoutIDs int
}

// ContaminantsMetric determines which identified peptides stem from
// contaminant proteins
type ContaminantsMetric struct {
	results  []ContaminantsResult
	digested map[string]bool
	source   []msdata.FASTAEntry
}

// Name returns "Contaminants"
func (c *ContaminantsMetric) Name() string { return `Contaminants` }

// Requires returns the inputs the metric needs
func (c *ContaminantsMetric) Requires() Status { return NewStatus(PostFDRFeat, Contaminants) }

// Results returns one result per computed experiment
func (c *ContaminantsMetric) Results() []ContaminantsResult { return c.results }

// Run implements Metric
func (c *ContaminantsMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return nil, c.Compute(res.Features, res.Contaminants)
}

// Compute annotates the top hits of fm and stores the contaminant ratios
func (c *ContaminantsMetric) Compute(fm *msdata.FeatureMap, contaminants []msdata.FASTAEntry) error {
	if len(contaminants) == 0 {
		return fmt.Errorf("%w: no contaminants provided", ErrMissingInformation)
	}
	c.digest(contaminants)

	var all, allCont, assigned, assignedCont int
	var intens, intensCont float64
	var r ContaminantsResult
	seenFeature := -2
	err := forEachTopHit(fm, func(feature int, _ *msdata.PeptideIdentification, hit *msdata.PeptideHit) error {
		p, err := msdata.ParsePeptide(hit.Sequence)
		if err != nil {
			return err
		}
		cont := c.digested[p.Unmodified()]
		if cont {
			hit.Meta.Set(MetaIsContaminant, 1)
			allCont++
		} else {
			hit.Meta.Set(MetaIsContaminant, 0)
		}
		all++
		if feature < 0 {
			return nil
		}
		assigned++
		if cont {
			assignedCont++
		}
		// Only the first identification decides for the feature intensity
		if feature != seenFeature {
			seenFeature = feature
			intens += fm.Features[feature].Intensity
			if cont {
				intensCont += fm.Features[feature].Intensity
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := range fm.Features {
		if len(fm.Features[i].PeptideIdentifications) == 0 {
			r.FeaturesWithoutIDs++
		}
	}
	r.All = ratio(float64(allCont), float64(all))
	r.Assigned = ratio(float64(assignedCont), float64(assigned))
	r.Unassigned = ratio(float64(allCont-assignedCont), float64(all-assigned))
	r.AssignedIntensity = ratio(intensCont, intens)
	c.results = append(c.results, r)
	return nil
}

// digest builds the set of contaminant peptides, once per database
func (c *ContaminantsMetric) digest(contaminants []msdata.FASTAEntry) {
	if c.digested != nil && len(c.source) == len(contaminants) && &c.source[0] == &contaminants[0] {
		return
	}
	e, _ := lookupEnzyme(defaultEnzyme)
	c.digested = make(map[string]bool)
	for _, entry := range contaminants {
		for _, pep := range e.digest(entry.Sequence, 2, 6) {
			c.digested[pep] = true
		}
	}
	c.source = contaminants
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
