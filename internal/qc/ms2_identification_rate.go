package qc

import (
	"errors"
	"fmt"

	"github.com/524D/mzqc/internal/msdata"
)

var (
	// ErrNoFDR means no hit carries target/decoy information
	ErrNoFDR = errors.New("FDR was not made. If you want to continue without FDR use -force_no_fdr")
	// ErrTooManyIdentifications means more spectra are identified than measured
	ErrTooManyIdentifications = errors.New("qc: more identifications than MS2 spectra")
)

// IdentificationRate is the MS2 identification rate of one experiment
type IdentificationRate struct {
	Identified int
	MS2Spectra int
	Rate       float64
}

// Ms2IdentificationRateMetric relates the identified spectra to all MS2
// spectra
type Ms2IdentificationRateMetric struct {
	ForceNoFDR bool // count every top hit when no target/decoy annotation exists
	results    []IdentificationRate
}

// Name returns "Ms2IdentificationRate"
func (m *Ms2IdentificationRateMetric) Name() string { return `Ms2IdentificationRate` }

// Requires returns the inputs the metric needs
func (m *Ms2IdentificationRateMetric) Requires() Status { return NewStatus(RawMzML, PostFDRFeat) }

// Results returns one result per computed experiment
func (m *Ms2IdentificationRateMetric) Results() []IdentificationRate { return m.results }

// Run implements Metric
func (m *Ms2IdentificationRateMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return nil, m.Compute(res.Features, res.Spectra, m.ForceNoFDR)
}

// Compute counts the identifications with a target top hit and the MS2
// spectra of exp
func (m *Ms2IdentificationRateMetric) Compute(fm *msdata.FeatureMap, exp *msdata.Experiment, forceNoFDR bool) error {
	ms2 := 0
	for i := range exp.Spectra {
		if exp.Spectra[i].MSLevel == 2 {
			ms2++
		}
	}
	if ms2 == 0 {
		return fmt.Errorf("%w: no MS2 spectra found", ErrMissingInformation)
	}
	identified := 0
	err := forEachTopHit(fm, func(_ int, _ *msdata.PeptideIdentification, hit *msdata.PeptideHit) error {
		td, ok := hit.Meta.String(msdata.MetaTargetDecoy)
		if !ok {
			if !forceNoFDR {
				return ErrNoFDR
			}
			identified++
			return nil
		}
		if td == `target` || td == `target+decoy` {
			identified++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if identified > ms2 {
		return fmt.Errorf("%w (%d > %d)", ErrTooManyIdentifications, identified, ms2)
	}
	m.results = append(m.results, IdentificationRate{
		Identified: identified,
		MS2Spectra: ms2,
		Rate:       float64(identified) / float64(ms2),
	})
	return nil
}
