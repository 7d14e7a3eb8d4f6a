package qc

import (
	"github.com/524D/mzqc/internal/msdata"

	"gonum.org/v1/gonum/floats"
)

// TICPoint is one point of a total ion current chromatogram
type TICPoint struct {
	RT        float64
	Intensity float64
}

// TICMetric computes the total ion current chromatogram of the MS1 spectra
type TICMetric struct {
	results [][]TICPoint
}

// Name returns "TIC"
func (m *TICMetric) Name() string { return `TIC` }

// Requires returns the inputs the metric needs
func (m *TICMetric) Requires() Status { return NewStatus(RawMzML) }

// Results returns one chromatogram per computed experiment
func (m *TICMetric) Results() [][]TICPoint { return m.results }

// Run implements Metric
func (m *TICMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	m.Compute(res.Spectra)
	return nil, nil
}

// Compute sums the peak intensities of every MS1 spectrum. Spectra
// without peaks contribute the total ion current recorded in the file.
func (m *TICMetric) Compute(exp *msdata.Experiment) {
	tic := []TICPoint{}
	var intens []float64
	for i := range exp.Spectra {
		s := &exp.Spectra[i]
		if s.MSLevel != 1 {
			continue
		}
		if len(s.Peaks) == 0 {
			tic = append(tic, TICPoint{RT: s.RT, Intensity: s.TIC})
			continue
		}
		intens = intens[:0]
		for _, p := range s.Peaks {
			intens = append(intens, p.Intens)
		}
		tic = append(tic, TICPoint{RT: s.RT, Intensity: floats.Sum(intens)})
	}
	m.results = append(m.results, tic)
}
