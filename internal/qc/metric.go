// Package qc implements the quality control metrics and decides which of
// them can run on the supplied inputs.
package qc

import (
	"errors"
	"fmt"

	"github.com/524D/mzqc/internal/msdata"

	"go.uber.org/zap"
)

// Resources holds the inputs of one experiment. Categories that were
// not supplied hold empty values.
type Resources struct {
	Features     *msdata.FeatureMap
	Spectra      *msdata.Experiment
	Lookup       *msdata.SpectrumLookup
	Transform    *msdata.Transformation
	Contaminants []msdata.FASTAEntry
	Logger       *zap.Logger
}

func (r *Resources) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Metric is a single QC computation
type Metric interface {
	Name() string
	Requires() Status
	// Run computes the metric over one experiment. Metrics may annotate
	// the feature table and may return new identifications.
	Run(res *Resources) ([]msdata.PeptideIdentification, error)
}

// IdentificationProducer is implemented by metrics whose Run returns
// new identifications that belong in the report
type IdentificationProducer interface {
	ProducesIdentifications() bool
}

var (
	// ErrMissingInformation means an input lacks data a metric needs
	ErrMissingInformation = errors.New("qc: missing information")
	// ErrSpectrumNotFound means a referenced spectrum is not in the spectra file
	ErrSpectrumNotFound = errors.New("qc: spectrum not found")
)

// Maximum retention time difference (seconds) and precursor m/z
// difference (Th) when an identification without spectrum reference is
// matched to an MS2 spectrum
const (
	spectrumRTTolerance = 0.5
	spectrumMZTolerance = 0.05
)

// findSpectrum returns the index of the MS2 spectrum of an
// identification, or -1 if there is none
func findSpectrum(id *msdata.PeptideIdentification, exp *msdata.Experiment, lookup *msdata.SpectrumLookup) (int, error) {
	if lookup == nil {
		return -1, nil
	}
	if ref, ok := id.Meta.String(msdata.MetaSpectrumReference); ok && ref != `` {
		i, err := lookup.Index(ref)
		if err != nil {
			return -1, fmt.Errorf("%w: %s", ErrSpectrumNotFound, ref)
		}
		if exp.Spectra[i].MSLevel != 2 {
			return -1, fmt.Errorf("%w: %s is not an MS2 spectrum", ErrSpectrumNotFound, ref)
		}
		return i, nil
	}
	i, ok := lookup.NearestMS2(id.RT, spectrumRTTolerance, id.MZ, spectrumMZTolerance)
	if !ok {
		return -1, nil
	}
	return i, nil
}

// forEachTopHit calls fn for every identification of fm that has hits,
// with its best hit
func forEachTopHit(fm *msdata.FeatureMap, fn func(feature int, id *msdata.PeptideIdentification, hit *msdata.PeptideHit) error) error {
	return fm.ForEachIdentification(func(feature int, id *msdata.PeptideIdentification) error {
		if len(id.Hits) == 0 {
			return nil
		}
		return fn(feature, id, &id.Hits[0])
	})
}
