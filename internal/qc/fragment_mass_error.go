package qc

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/524D/mzqc/internal/msdata"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Hit meta keys written by FragmentMassErrorMetric
const (
	MetaFragmentErrorPPM = `fragment_mass_error_ppm`
	MetaFragmentErrorDa  = `fragment_mass_error_da`
)

// ToleranceUnit selects how the fragment tolerance is interpreted
type ToleranceUnit int

// Tolerance units
const (
	ToleranceAuto ToleranceUnit = iota // from the search parameters
	TolerancePPM
	ToleranceDa
)

var toleranceUnitNames = [...]string{`auto`, `ppm`, `Da`}

func (u ToleranceUnit) String() string {
	if u < 0 || int(u) >= len(toleranceUnitNames) {
		return `unknown`
	}
	return toleranceUnitNames[u]
}

// ErrToleranceUnit means an unknown tolerance unit name was given
var ErrToleranceUnit = errors.New("qc: invalid tolerance unit")

// ParseToleranceUnit converts "auto", "ppm" or "Da" into a ToleranceUnit
func ParseToleranceUnit(s string) (ToleranceUnit, error) {
	for i, n := range toleranceUnitNames {
		if n == s {
			return ToleranceUnit(i), nil
		}
	}
	return ToleranceAuto, fmt.Errorf("%w: %s (must be auto, ppm or Da)", ErrToleranceUnit, s)
}

// Default tolerance when the search parameters do not provide one
const defaultFragmentTolerancePPM = 20.0

// FMEStatistics summarizes the fragment mass errors of one experiment
type FMEStatistics struct {
	AveragePPM  float64
	VariancePPM float64
	Matched     int
}

// FragmentMassErrorMetric matches theoretical fragment ions of the top
// hits against the identified spectra
type FragmentMassErrorMetric struct {
	Unit      ToleranceUnit
	Tolerance float64
	results   []FMEStatistics
}

// Name returns "FragmentMassError"
func (f *FragmentMassErrorMetric) Name() string { return `FragmentMassError` }

// Requires returns the inputs the metric needs
func (f *FragmentMassErrorMetric) Requires() Status { return NewStatus(PostFDRFeat, RawMzML) }

// Results returns one result per computed experiment
func (f *FragmentMassErrorMetric) Results() []FMEStatistics { return f.results }

// Run implements Metric
func (f *FragmentMassErrorMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return nil, f.Compute(res.Features, res.Spectra, res.Lookup, res.logger())
}

// tolerance returns the tolerance and whether it is in ppm
func (f *FragmentMassErrorMetric) tolerance(fm *msdata.FeatureMap) (float64, bool) {
	switch f.Unit {
	case TolerancePPM:
		return f.Tolerance, true
	case ToleranceDa:
		return f.Tolerance, false
	}
	for i := range fm.ProteinIdentifications {
		sp := fm.ProteinIdentifications[i].SearchParameters
		if sp.FragmentMassTolerance > 0 {
			return sp.FragmentMassTolerance, sp.FragmentMassTolerancePPM
		}
	}
	return defaultFragmentTolerancePPM, true
}

// Compute annotates the top hits with the errors of matched fragments
func (f *FragmentMassErrorMetric) Compute(fm *msdata.FeatureMap, exp *msdata.Experiment,
	lookup *msdata.SpectrumLookup, logger *zap.Logger) error {
	tol, ppm := f.tolerance(fm)
	logger.Debug("fragment tolerance", zap.Float64("tolerance", tol), zap.Bool("ppm", ppm))
	var allPPM []float64
	err := forEachTopHit(fm, func(_ int, id *msdata.PeptideIdentification, hit *msdata.PeptideHit) error {
		si, err := findSpectrum(id, exp, lookup)
		if err != nil {
			return err
		}
		if si < 0 {
			return nil
		}
		ions, err := fragmentIons(hit.Sequence)
		if err != nil {
			return err
		}
		errPPM, errDa := matchFragments(ions, exp.Spectra[si].Peaks, tol, ppm)
		hit.Meta.Set(MetaFragmentErrorPPM, errPPM)
		hit.Meta.Set(MetaFragmentErrorDa, errDa)
		allPPM = append(allPPM, errPPM...)
		return nil
	})
	if err != nil {
		return err
	}
	var r FMEStatistics
	r.Matched = len(allPPM)
	if len(allPPM) > 0 {
		r.AveragePPM, r.VariancePPM = stat.MeanVariance(allPPM, nil)
		if len(allPPM) == 1 {
			r.VariancePPM = 0
		}
	}
	f.results = append(f.results, r)
	return nil
}

// matchFragments finds, for every theoretical ion, the closest peak
// within the tolerance and returns the errors in ppm and Da
func matchFragments(ions []float64, peaks []msdata.Peak, tol float64, ppm bool) ([]float64, []float64) {
	sorted := sort.SliceIsSorted(peaks, func(i, j int) bool { return peaks[i].Mz < peaks[j].Mz })
	if !sorted {
		peaks = append([]msdata.Peak(nil), peaks...)
		sort.Slice(peaks, func(i, j int) bool { return peaks[i].Mz < peaks[j].Mz })
	}
	errPPM := []float64{}
	errDa := []float64{}
	for _, ion := range ions {
		maxDiff := tol
		if ppm {
			maxDiff = ion * tol * 1e-6
		}
		j := sort.Search(len(peaks), func(i int) bool { return peaks[i].Mz >= ion })
		best := -1
		bestDiff := math.Inf(1)
		for _, k := range []int{j - 1, j} {
			if k < 0 || k >= len(peaks) {
				continue
			}
			d := math.Abs(peaks[k].Mz - ion)
			if d <= maxDiff && d < bestDiff {
				best, bestDiff = k, d
			}
		}
		if best < 0 {
			continue
		}
		da := peaks[best].Mz - ion
		errDa = append(errDa, da)
		errPPM = append(errPPM, da/ion*1e6)
	}
	return errPPM, errDa
}
