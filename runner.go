package main

import (
	"fmt"
	"time"

	"github.com/524D/mzqc/internal/msdata"
	"github.com/524D/mzqc/internal/qc"

	"go.uber.org/zap"
)

// metricSet holds the metrics of a run. Results accumulate over the
// experiments.
type metricSet struct {
	contaminants      qc.ContaminantsMetric
	fragmentMassError qc.FragmentMassErrorMetric
	missedCleavages   qc.MissedCleavagesMetric
	ms2IDRate         qc.Ms2IdentificationRateMetric
	mzCalibration     qc.MzCalibrationMetric
	rtAlignment       qc.RTAlignmentMetric
	tic               qc.TICMetric
	topNoverRT        qc.TopNoverRTMetric
}

func newMetricSet(par *params) *metricSet {
	var ms metricSet
	ms.fragmentMassError.Unit = par.unit
	ms.fragmentMassError.Tolerance = *par.fmeTolerance
	ms.ms2IDRate.ForceNoFDR = *par.forceNoFDR
	return &ms
}

// ordered returns the metrics in execution order
func (ms *metricSet) ordered() []qc.Metric {
	return []qc.Metric{
		&ms.contaminants,
		&ms.fragmentMassError,
		&ms.missedCleavages,
		&ms.ms2IDRate,
		&ms.mzCalibration,
		&ms.rtAlignment,
		&ms.tic,
		&ms.topNoverRT,
	}
}

// runMetrics runs every metric whose inputs are available on experiment
// i. New identifications get the identifier of the run of the feature
// map and are appended to overflow.
func runMetrics(i int, res *ExperimentResources, ms *metricSet, in *batchInputs,
	index *identityIndex, overflow *[]msdata.PeptideIdentification, co collaborators) error {
	expLogger := logger.With(zap.Int("experiment", i+1))
	for _, m := range ms.ordered() {
		if !qc.IsRunnable(m, in.status, expLogger) {
			continue
		}
		t := time.Now()
		newIDs, err := m.Run(&qc.Resources{
			Features:     res.Features,
			Spectra:      res.Spectra,
			Lookup:       res.Lookup,
			Transform:    res.Transform,
			Contaminants: in.contaminants,
			Logger:       expLogger,
		})
		if err != nil {
			return fmt.Errorf("experiment %d: %s: %w", i+1, m.Name(), err)
		}
		expLogger.Debug("metric computed", zap.String("metric", m.Name()), zap.Duration("elapsed", time.Since(t)))

		if err := adoptIdentifications(m, newIDs, res.Features, index, overflow); err != nil {
			return err
		}
	}
	if len(in.outFeat) > 0 {
		if err := co.storeFeatures(in.outFeat[i], res.Features); err != nil {
			return err
		}
	}
	return nil
}

// adoptIdentifications appends the new identifications of a metric that
// produces identifications to overflow, with the identifier of the run
// of fm. The run is looked up even when there are no new identifications.
func adoptIdentifications(m qc.Metric, newIDs []msdata.PeptideIdentification, fm *msdata.FeatureMap,
	index *identityIndex, overflow *[]msdata.PeptideIdentification) error {
	p, ok := m.(qc.IdentificationProducer)
	if !ok || !p.ProducesIdentifications() {
		if len(newIDs) > 0 {
			logger.Warn("new identifications ignored", zap.String("metric", m.Name()), zap.Int("count", len(newIDs)))
		}
		return nil
	}
	identifier, err := index.runIdentifier(fm.PrimaryMSRunPath())
	if err != nil {
		return err
	}
	for j := range newIDs {
		newIDs[j].Identifier = identifier
	}
	*overflow = append(*overflow, newIDs...)
	return nil
}

// run executes all experiments and writes the report
func run(par *params, co collaborators) error {
	in, err := newBatchInputs(par, co)
	if err != nil {
		return err
	}
	cmap, err := co.loadConsensus(*par.inCM)
	if err != nil {
		return err
	}
	index, err := buildIdentityIndex(cmap)
	if err != nil {
		return err
	}

	ms := newMetricSet(par)
	var overflow []msdata.PeptideIdentification
	for i := 0; i < in.numberExps; i++ {
		res, err := in.loadExperiment(i, co)
		if err != nil {
			return err
		}
		if err := runMetrics(i, res, ms, in, index, &overflow, co); err != nil {
			return err
		}
		if err := mergeAnnotations(res.Features, index); err != nil {
			return err
		}
	}
	return assembleReport(cmap, overflow, ms, par, co)
}
