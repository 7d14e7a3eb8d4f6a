package qc

import (
	"sort"

	"github.com/524D/mzqc/internal/msdata"

	"gonum.org/v1/gonum/stat"
)

// Hit meta keys written by MzCalibrationMetric
const (
	MetaMzRaw           = `mz_raw`
	MetaMzRef           = `mz_ref`
	MetaUncalibratedPPM = `uncalibrated_mz_error_ppm`
)

// MzCalibrationMetric compares measured precursor m/z values with the
// theoretical m/z of the top hits
type MzCalibrationMetric struct {
	results []float64
}

// Name returns "MzCalibration"
func (m *MzCalibrationMetric) Name() string { return `MzCalibration` }

// Requires returns the inputs the metric needs
func (m *MzCalibrationMetric) Requires() Status { return NewStatus(PostFDRFeat, RawMzML) }

// Results returns the median m/z error (ppm) per computed experiment
func (m *MzCalibrationMetric) Results() []float64 { return m.results }

// Run implements Metric
func (m *MzCalibrationMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return nil, m.Compute(res.Features, res.Spectra, res.Lookup)
}

// Compute annotates the top hits with raw and theoretical m/z
func (m *MzCalibrationMetric) Compute(fm *msdata.FeatureMap, exp *msdata.Experiment, lookup *msdata.SpectrumLookup) error {
	var errs []float64
	err := forEachTopHit(fm, func(_ int, id *msdata.PeptideIdentification, hit *msdata.PeptideHit) error {
		if hit.Charge == 0 {
			return nil
		}
		mass, err := pepMass(hit.Sequence)
		if err != nil {
			return err
		}
		ref := mzFromMass(mass, hit.Charge)
		raw := id.MZ
		si, err := findSpectrum(id, exp, lookup)
		if err != nil {
			return err
		}
		if si >= 0 && len(exp.Spectra[si].Precursors) > 0 && exp.Spectra[si].Precursors[0].Mz > 0 {
			raw = exp.Spectra[si].Precursors[0].Mz
		}
		ppm := (raw - ref) / ref * 1e6
		hit.Meta.Set(MetaMzRaw, raw)
		hit.Meta.Set(MetaMzRef, ref)
		hit.Meta.Set(MetaUncalibratedPPM, ppm)
		errs = append(errs, ppm)
		return nil
	})
	if err != nil {
		return err
	}
	median := 0.0
	if len(errs) > 0 {
		sort.Float64s(errs)
		median = stat.Quantile(0.5, stat.Empirical, errs, nil)
	}
	m.results = append(m.results, median)
	return nil
}
