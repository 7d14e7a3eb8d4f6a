package main

import (
	"fmt"
	"time"

	"github.com/524D/mzqc/internal/fasta"
	"github.com/524D/mzqc/internal/msdata"
	"github.com/524D/mzqc/internal/mzml"
	"github.com/524D/mzqc/internal/mztab"
	"github.com/524D/mzqc/internal/openmsxml"
	"github.com/524D/mzqc/internal/qc"

	"go.uber.org/zap"
)

// collaborators load and store the files of a run
type collaborators struct {
	loadSpectra    func(path string) (*msdata.Experiment, error)
	loadFeatures   func(path string) (*msdata.FeatureMap, error)
	storeFeatures  func(path string, fm *msdata.FeatureMap) error
	loadConsensus  func(path string) (*msdata.ConsensusMap, error)
	storeConsensus func(path string, cm *msdata.ConsensusMap) error
	loadTransform  func(path string) (*msdata.Transformation, error)
	loadFASTA      func(path string) ([]msdata.FASTAEntry, error)
	storeReport    func(path string, doc *mztab.Document) error
}

func defaultCollaborators() collaborators {
	return collaborators{
		loadSpectra:    mzml.Load,
		loadFeatures:   openmsxml.LoadFeatureXML,
		storeFeatures:  openmsxml.StoreFeatureXML,
		loadConsensus:  openmsxml.LoadConsensusXML,
		storeConsensus: openmsxml.StoreConsensusXML,
		loadTransform:  openmsxml.LoadTrafoXML,
		loadFASTA:      fasta.Load,
		storeReport:    mztab.Store,
	}
}

// ExperimentResources holds the inputs of one experiment. Inputs that
// were not given are empty.
type ExperimentResources struct {
	Spectra   *msdata.Experiment
	Lookup    *msdata.SpectrumLookup
	Features  *msdata.FeatureMap
	Transform *msdata.Transformation
}

// batchInputs holds the per experiment file lists and the inputs that
// are shared by all experiments
type batchInputs struct {
	numberExps   int
	status       qc.Status
	raw          []string
	postFDR      []string
	trafo        []string
	outFeat      []string
	contaminants []msdata.FASTAEntry
}

// registerList accepts an optional file list. The first non-empty list
// fixes the number of experiments, all later non-empty lists must have
// the same length.
func (b *batchInputs) registerList(name string, files []string, req qc.Requires) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if b.numberExps == 0 {
		b.numberExps = len(files)
	}
	if len(files) != b.numberExps {
		return nil, fmt.Errorf("%w: %s: invalid number of files. Expected were %d.",
			ErrInvalidParameter, name, b.numberExps)
	}
	b.status.Add(req)
	return files, nil
}

// newBatchInputs checks the file lists of par and loads the contaminant
// database
func newBatchInputs(par *params, co collaborators) (*batchInputs, error) {
	var b batchInputs
	var err error
	if b.raw, err = b.registerList(`in_raw`, par.inRaw, qc.RawMzML); err != nil {
		return nil, err
	}
	if b.postFDR, err = b.registerList(`in_postFDR`, par.inPostFDR, qc.PostFDRFeat); err != nil {
		return nil, err
	}
	if b.trafo, err = b.registerList(`in_trafo`, par.inTrafo, qc.TrafoAlign); err != nil {
		return nil, err
	}
	if len(par.outFeat) != 0 && len(par.outFeat) != b.numberExps {
		return nil, fmt.Errorf("%w: out_feat: invalid number of files. Expected were %d.",
			ErrInvalidParameter, b.numberExps)
	}
	b.outFeat = par.outFeat

	if *par.inContaminants != `` {
		b.contaminants, err = co.loadFASTA(*par.inContaminants)
		if err != nil {
			return nil, err
		}
		b.status.Add(qc.Contaminants)
	}
	logger.Debug("inputs checked",
		zap.Int("experiments", b.numberExps),
		zap.Stringers("inputs", b.status.Members()))
	return &b, nil
}

// loadExperiment loads the inputs of experiment i
func (b *batchInputs) loadExperiment(i int, co collaborators) (*ExperimentResources, error) {
	t := time.Now()
	res := ExperimentResources{
		Spectra:   &msdata.Experiment{},
		Features:  &msdata.FeatureMap{},
		Transform: &msdata.Transformation{},
	}
	var err error
	if len(b.raw) > 0 {
		if res.Spectra, err = co.loadSpectra(b.raw[i]); err != nil {
			return nil, err
		}
		res.Lookup = msdata.NewSpectrumLookup(res.Spectra)
	}
	if len(b.postFDR) > 0 {
		if res.Features, err = co.loadFeatures(b.postFDR[i]); err != nil {
			return nil, err
		}
	}
	if len(b.trafo) > 0 {
		if res.Transform, err = co.loadTransform(b.trafo[i]); err != nil {
			return nil, err
		}
	}
	logger.Debug("experiment loaded", zap.Int("experiment", i+1), zap.Duration("elapsed", time.Since(t)))
	return &res, nil
}
