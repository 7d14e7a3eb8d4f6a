package main

import (
	"strconv"

	"github.com/524D/mzqc/internal/idconflict"
	"github.com/524D/mzqc/internal/msdata"
	"github.com/524D/mzqc/internal/mztab"
	"github.com/524D/mzqc/internal/qc"

	"go.uber.org/zap"
)

// Custom report fields
const (
	ticLabel      = `total ion current`
	ticAccession  = `MS:1000285`
	ms2RateLabel  = `MS2 identification rate`
	ticPrefix     = `TIC_`
	ms2RatePrefix = `MS2_ID_Rate_`
)

// ticField formats the chromatogram of experiment n (1-based) as
// [rt, intensity, rt, intensity, ...]
func ticField(n int, tic []qc.TICPoint) mztab.Parameter {
	values := make([]float64, 0, 2*len(tic))
	for _, p := range tic {
		values = append(values, p.RT, p.Intensity)
	}
	return mztab.Parameter{
		CVLabel:   ticLabel,
		Accession: ticAccession,
		Name:      ticPrefix + strconv.Itoa(n),
		Value:     mztab.FormatList(values),
	}
}

// ms2RateField formats the identification rate of experiment n
// (1-based) as a percentage
func ms2RateField(n int, rate float64) mztab.Parameter {
	return mztab.Parameter{
		CVLabel:   ms2RateLabel,
		Accession: mztab.Null,
		Name:      ms2RatePrefix + strconv.Itoa(n),
		Value:     mztab.FormatDouble(rate * 100),
	}
}

// customFields returns the TIC fields followed by the identification
// rate fields, each in experiment order
func customFields(ms *metricSet) []mztab.Parameter {
	var fields []mztab.Parameter
	for i, tic := range ms.tic.Results() {
		fields = append(fields, ticField(i+1, tic))
	}
	for i, r := range ms.ms2IDRate.Results() {
		fields = append(fields, ms2RateField(i+1, r.Rate))
	}
	return fields
}

// assembleReport resolves conflicting identifications, adds the new
// identifications and writes the consensus map and the report
func assembleReport(cmap *msdata.ConsensusMap, overflow []msdata.PeptideIdentification,
	ms *metricSet, par *params, co collaborators) error {
	idconflict.Resolve(cmap)
	cmap.UnassignedPeptideIdentifications = append(cmap.UnassignedPeptideIdentifications, overflow...)

	if *par.outCM != `` {
		if err := co.storeConsensus(*par.outCM, cmap); err != nil {
			return err
		}
	}
	doc, err := mztab.Export(cmap, *par.inCM, mztab.ExportOptions{
		ExportUnidentifiedFeatures: true,
		ExportUnassignedIDs:        true,
		ExportSubfeatures:          true,
		ExportEmptyIDs:             true,
	})
	if err != nil {
		return err
	}
	doc.Meta.Custom = append(doc.Meta.Custom, customFields(ms)...)
	logger.Info("writing report",
		zap.String("file", *par.out),
		zap.Int("peptides", len(doc.Peptides)),
		zap.Int("psms", len(doc.PSMs)))
	return co.storeReport(*par.out, doc)
}
