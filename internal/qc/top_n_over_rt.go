package qc

import (
	"fmt"

	"github.com/524D/mzqc/internal/msdata"
)

// Identification meta keys written by TopNoverRTMetric
const (
	MetaScanEventNumber = `ScanEventNumber`
	MetaIdentified      = `identified`
)

// TopNoverRTMetric numbers the MS2 spectra after each MS1 spectrum and
// records which of them were identified
type TopNoverRTMetric struct{}

// Name returns "TopNoverRT"
func (m *TopNoverRTMetric) Name() string { return `TopNoverRT` }

// Requires returns the inputs the metric needs
func (m *TopNoverRTMetric) Requires() Status { return NewStatus(RawMzML, PostFDRFeat) }

// ProducesIdentifications implements IdentificationProducer
func (m *TopNoverRTMetric) ProducesIdentifications() bool { return true }

// Run implements Metric
func (m *TopNoverRTMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return m.Compute(res.Spectra, res.Lookup, res.Features)
}

// Compute annotates the identifications of fm with the scan event number
// of their spectrum. For every MS2 spectrum without identification a new
// identification without hits is returned. The run identifier of the new
// identifications is left empty.
func (m *TopNoverRTMetric) Compute(exp *msdata.Experiment, lookup *msdata.SpectrumLookup,
	fm *msdata.FeatureMap) ([]msdata.PeptideIdentification, error) {
	if exp.Empty() {
		return nil, fmt.Errorf("%w: no spectra", ErrMissingInformation)
	}
	scanEvent := make([]int, len(exp.Spectra))
	n := 0
	for i := range exp.Spectra {
		switch exp.Spectra[i].MSLevel {
		case 1:
			n = 0
		case 2:
			n++
			scanEvent[i] = n
		}
	}

	identified := make([]bool, len(exp.Spectra))
	err := fm.ForEachIdentification(func(_ int, id *msdata.PeptideIdentification) error {
		si, err := findSpectrum(id, exp, lookup)
		if err != nil {
			return err
		}
		if si < 0 {
			return nil
		}
		id.Meta.Set(MetaScanEventNumber, scanEvent[si])
		id.Meta.Set(MetaIdentified, 1)
		identified[si] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	var newIDs []msdata.PeptideIdentification
	for i := range exp.Spectra {
		s := &exp.Spectra[i]
		if s.MSLevel != 2 || identified[i] {
			continue
		}
		id := msdata.PeptideIdentification{RT: s.RT}
		if len(s.Precursors) > 0 {
			id.MZ = s.Precursors[0].Mz
		}
		id.Meta.Set(msdata.MetaSpectrumReference, s.NativeID)
		id.Meta.Set(MetaScanEventNumber, scanEvent[i])
		id.Meta.Set(MetaIdentified, 0)
		newIDs = append(newIDs, id)
	}
	return newIDs, nil
}
