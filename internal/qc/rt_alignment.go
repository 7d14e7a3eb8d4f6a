package qc

import (
	"github.com/524D/mzqc/internal/msdata"
)

// Meta keys written by RTAlignmentMetric
const (
	MetaRTRaw   = `rt_raw`
	MetaRTAlign = `rt_align`
)

// RTAlignmentMetric annotates identifications and features with their
// retention time before and after alignment
type RTAlignmentMetric struct{}

// Name returns "RTAlignment"
func (m *RTAlignmentMetric) Name() string { return `RTAlignment` }

// Requires returns the inputs the metric needs
func (m *RTAlignmentMetric) Requires() Status { return NewStatus(PostFDRFeat, TrafoAlign) }

// Run implements Metric
func (m *RTAlignmentMetric) Run(res *Resources) ([]msdata.PeptideIdentification, error) {
	return nil, m.Compute(res.Features, res.Transform)
}

// Compute applies the transformation to all retention times of fm.
// A transformation that was not fitted yet is fitted first.
func (m *RTAlignmentMetric) Compute(fm *msdata.FeatureMap, trafo *msdata.Transformation) error {
	if trafo == nil {
		trafo = &msdata.Transformation{}
	}
	if !trafo.Fitted() {
		if err := trafo.Fit(); err != nil {
			return err
		}
	}
	err := fm.ForEachIdentification(func(_ int, id *msdata.PeptideIdentification) error {
		id.Meta.Set(MetaRTRaw, id.RT)
		id.Meta.Set(MetaRTAlign, trafo.Apply(id.RT))
		return nil
	})
	if err != nil {
		return err
	}
	for i := range fm.Features {
		f := &fm.Features[i]
		f.Meta.Set(MetaRTRaw, f.RT)
		f.Meta.Set(MetaRTAlign, trafo.Apply(f.RT))
	}
	return nil
}
