package qc

import (
	"fmt"

	"github.com/524D/mzqc/internal/msdata"

	"go.uber.org/zap"
)

// MetaMissedCleavages holds the number of missed cleavages of a hit
const MetaMissedCleavages = `missed_cleavages`

// MissedCleavagesMetric counts the missed cleavages of the top hits
type MissedCleavagesMetric struct {
	results []map[int]int
}

// Name returns "MissedCleavages"
func (m *MissedCleavagesMetric) Name() string { return `MissedCleavages` }

// Requires returns the inputs the metric needs
func (m *MissedCleavagesMetric) Requires() Status { return NewStatus(PostFDRFeat) }

// Results returns, per computed experiment, the number of top hits
// for each count of missed cleavages
func (m *MissedCleavagesMetric) Results() []map[int]int { return m.results }

// Run implements Metric
func (m *MissedCleavagesMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return nil, m.Compute(res.Features, res.logger())
}

// Compute annotates the top hits of fm with their missed cleavages
func (m *MissedCleavagesMetric) Compute(fm *msdata.FeatureMap, logger *zap.Logger) error {
	hist := make(map[int]int)
	if fm.NumIdentifications() == 0 {
		m.results = append(m.results, hist)
		return nil
	}
	if len(fm.ProteinIdentifications) == 0 {
		return fmt.Errorf("%w: no protein identifications in feature map", ErrMissingInformation)
	}
	name := fm.ProteinIdentifications[0].SearchParameters.Enzyme
	for i := range fm.ProteinIdentifications[1:] {
		if other := fm.ProteinIdentifications[i+1].SearchParameters.Enzyme; other != name {
			return fmt.Errorf("%w: different enzymes %s and %s", ErrMissingInformation, name, other)
		}
	}
	if name == `` {
		logger.Debug("no enzyme in search parameters, using default", zap.String("enzyme", defaultEnzyme))
	}
	e, err := lookupEnzyme(name)
	if err != nil {
		return err
	}
	err = forEachTopHit(fm, func(_ int, _ *msdata.PeptideIdentification, hit *msdata.PeptideHit) error {
		p, err := msdata.ParsePeptide(hit.Sequence)
		if err != nil {
			return err
		}
		n := e.missedCleavages(p.Unmodified())
		hit.Meta.Set(MetaMissedCleavages, n)
		hist[n]++
		return nil
	})
	if err != nil {
		return err
	}
	m.results = append(m.results, hist)
	return nil
}
