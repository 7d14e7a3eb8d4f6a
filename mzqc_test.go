package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/524D/mzqc/internal/msdata"
	"github.com/524D/mzqc/internal/mztab"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var cmpOpts = []cmp.Option{
	cmp.AllowUnexported(msdata.MetaInfo{}),
	cmpopts.EquateEmpty(),
}

// testParams parses command line arguments like main does
func testParams(t *testing.T, args ...string) *params {
	t.Helper()
	fs := flag.NewFlagSet(`mzqc`, flag.ContinueOnError)
	par := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	par.args = fs.Args()
	if err := sanatizeParams(par); err != nil {
		t.Fatalf("sanatizeParams: %v", err)
	}
	return par
}

// observeLogger replaces the package logger until the test ends
func observeLogger(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.WarnLevel)
	old := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = old })
	return logs
}

// fakeFiles serves inputs from memory and records outputs
type fakeFiles struct {
	spectra   map[string]*msdata.Experiment
	features  map[string]*msdata.FeatureMap
	trafos    map[string]*msdata.Transformation
	consensus *msdata.ConsensusMap
	fasta     []msdata.FASTAEntry

	loaded          []string
	storedFeatures  map[string]*msdata.FeatureMap
	storedConsensus *msdata.ConsensusMap
	report          *mztab.Document
}

func notFound(path string) error {
	return fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

func (f *fakeFiles) collaborators() collaborators {
	f.storedFeatures = make(map[string]*msdata.FeatureMap)
	return collaborators{
		loadSpectra: func(path string) (*msdata.Experiment, error) {
			f.loaded = append(f.loaded, path)
			if exp, ok := f.spectra[path]; ok {
				return exp, nil
			}
			return nil, notFound(path)
		},
		loadFeatures: func(path string) (*msdata.FeatureMap, error) {
			f.loaded = append(f.loaded, path)
			if fm, ok := f.features[path]; ok {
				return fm, nil
			}
			return nil, notFound(path)
		},
		storeFeatures: func(path string, fm *msdata.FeatureMap) error {
			f.storedFeatures[path] = fm
			return nil
		},
		loadConsensus: func(path string) (*msdata.ConsensusMap, error) {
			f.loaded = append(f.loaded, path)
			if f.consensus == nil {
				return nil, notFound(path)
			}
			return f.consensus, nil
		},
		storeConsensus: func(path string, cm *msdata.ConsensusMap) error {
			f.storedConsensus = cm
			return nil
		},
		loadTransform: func(path string) (*msdata.Transformation, error) {
			f.loaded = append(f.loaded, path)
			if tr, ok := f.trafos[path]; ok {
				return tr, nil
			}
			return nil, notFound(path)
		},
		loadFASTA: func(path string) ([]msdata.FASTAEntry, error) {
			f.loaded = append(f.loaded, path)
			return f.fasta, nil
		},
		storeReport: func(path string, doc *mztab.Document) error {
			f.report = doc
			return nil
		},
	}
}

func testHitID(uid, run, seq, targetDecoy string, score float64) msdata.PeptideIdentification {
	id := msdata.PeptideIdentification{
		Identifier:        run,
		HigherScoreBetter: true,
		Hits:              []msdata.PeptideHit{{Sequence: seq, Score: score, Rank: 1, Charge: 2}},
	}
	if uid != `` {
		id.Meta.Set(msdata.MetaUID, uid)
	}
	if targetDecoy != `` {
		id.Hits[0].Meta.Set(msdata.MetaTargetDecoy, targetDecoy)
	}
	return id
}

func testRun(identifier string, paths ...string) msdata.ProteinIdentification {
	run := msdata.ProteinIdentification{
		Identifier:   identifier,
		SearchEngine: `Comet`,
		SearchParameters: msdata.SearchParameters{
			Enzyme: `Trypsin`,
		},
	}
	run.SetPrimaryMSRunPath(paths)
	return run
}

// testConsensus has two experiments. Feature 0 holds U1 and U2 of run1,
// feature 1 holds U3 of run2, U4 of run2 is unassigned.
func testConsensus() *msdata.ConsensusMap {
	u1 := testHitID(`U1`, `run1`, `PEPTIDEK`, `target`, 10)
	u1.Meta.Set(msdata.MetaSpectrumReference, `s2`)
	u2 := testHitID(`U2`, `run1`, `AKPLRK`, `decoy`, 5)
	u3 := testHitID(`U3`, `run2`, `AAKAARAAK`, `target`, 8)
	u3.Meta.Set(msdata.MetaSpectrumReference, `t1`)
	u4 := testHitID(`U4`, `run2`, `LLLLK`, `target`, 7)
	u4.Meta.Set(msdata.MetaSpectrumReference, `t2`)
	return &msdata.ConsensusMap{
		ColumnHeaders: []msdata.ColumnHeader{{Filename: `a.featureXML`}, {Filename: `b.featureXML`}},
		Features: []msdata.ConsensusFeature{
			{UniqueID: 1, RT: 11, MZ: 464.73, PeptideIdentifications: []msdata.PeptideIdentification{u1, u2}},
			{UniqueID: 2, RT: 31, MZ: 458.77, PeptideIdentifications: []msdata.PeptideIdentification{u3}},
		},
		UnassignedPeptideIdentifications: []msdata.PeptideIdentification{u4},
		ProteinIdentifications: []msdata.ProteinIdentification{
			testRun(`run1`, `a.mzML`),
			testRun(`run2`, `b.mzML`),
		},
	}
}

// testFeatureMaps returns per experiment copies of the identifications
// of testConsensus
func testFeatureMaps(cmap *msdata.ConsensusMap) (*msdata.FeatureMap, *msdata.FeatureMap) {
	f0 := cmap.Features[0].PeptideIdentifications
	a := msdata.FeatureMap{
		ProteinIdentifications: []msdata.ProteinIdentification{testRun(`run1`, `a.mzML`)},
		Features: []msdata.Feature{
			{RT: 11, MZ: 464.73, Intensity: 100, PeptideIdentifications: []msdata.PeptideIdentification{
				f0[0].Clone(), f0[1].Clone(),
			}},
		},
	}
	b := msdata.FeatureMap{
		ProteinIdentifications: []msdata.ProteinIdentification{testRun(`run2`, `b.mzML`)},
		Features: []msdata.Feature{
			{RT: 31, MZ: 458.77, Intensity: 50, PeptideIdentifications: []msdata.PeptideIdentification{
				cmap.Features[1].PeptideIdentifications[0].Clone(),
			}},
		},
		UnassignedPeptideIdentifications: []msdata.PeptideIdentification{
			cmap.UnassignedPeptideIdentifications[0].Clone(),
		},
	}
	return &a, &b
}

// testSpectra returns experiment a (s1 MS1, s2 and s3 MS2) and
// experiment b (t0 MS1, t1 and t2 MS2)
func testSpectra() (*msdata.Experiment, *msdata.Experiment) {
	a := msdata.Experiment{SourceFile: `a.mzML`, Spectra: []msdata.Spectrum{
		{Index: 0, NativeID: `s1`, MSLevel: 1, RT: 10, Peaks: []msdata.Peak{{Mz: 100, Intens: 10}, {Mz: 200, Intens: 20}}},
		{Index: 1, NativeID: `s2`, MSLevel: 2, RT: 11, Precursors: []msdata.Precursor{{Mz: 464.7348, Charge: 2}},
			Peaks: []msdata.Peak{{Mz: 98.06, Intens: 5}, {Mz: 147.1128, Intens: 7}}},
		{Index: 2, NativeID: `s3`, MSLevel: 2, RT: 12, Precursors: []msdata.Precursor{{Mz: 600.5}}},
	}}
	b := msdata.Experiment{SourceFile: `b.mzML`, Spectra: []msdata.Spectrum{
		{Index: 0, NativeID: `t0`, MSLevel: 1, RT: 5, Peaks: []msdata.Peak{{Mz: 300, Intens: 7}}},
		{Index: 1, NativeID: `t1`, MSLevel: 2, RT: 31, Precursors: []msdata.Precursor{{Mz: 458.77, Charge: 2}}},
		{Index: 2, NativeID: `t2`, MSLevel: 2, RT: 33, Precursors: []msdata.Precursor{{Mz: 322.2, Charge: 2}}},
	}}
	return &a, &b
}

func customNames(doc *mztab.Document) []string {
	var names []string
	for _, p := range doc.Meta.Custom {
		names = append(names, p.Name)
	}
	return names
}

func hasOptColumn(doc *mztab.Document, col string) bool {
	for _, c := range doc.PSMOptColumns {
		if c == col {
			return true
		}
	}
	return false
}

func TestRunFeaturesOnly(t *testing.T) {
	logs := observeLogger(t)
	cmap := testConsensus()
	fa, fb := testFeatureMaps(cmap)
	files := fakeFiles{
		consensus: cmap,
		features:  map[string]*msdata.FeatureMap{`a.featureXML`: fa, `b.featureXML`: fb},
	}
	par := testParams(t, `-in_cm`, `in.consensusXML`, `-in_postFDR`, `a.featureXML,b.featureXML`,
		`-out`, `out.mzTab`, `-out_cm`, `out.consensusXML`, `-out_feat`, `a_qc.featureXML`, `-out_feat`, `b_qc.featureXML`)
	err := run(par, files.collaborators())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if files.report == nil {
		t.Fatalf("no report stored")
	}
	if names := customNames(files.report); len(names) != 0 {
		t.Errorf("Expected no custom fields, got: %v", names)
	}
	if !hasOptColumn(files.report, `opt_global_missed_cleavages`) {
		t.Errorf("Expected missed cleavages column, got: %v", files.report.PSMOptColumns)
	}
	if hasOptColumn(files.report, `opt_global_fragment_mass_error_ppm`) {
		t.Errorf("Unexpected fragment mass error column")
	}

	if n := logs.FilterField(zap.String("metric", "MissedCleavages")).Len(); n != 0 {
		t.Errorf("Expected no warnings for MissedCleavages, got %d", n)
	}
	// Seven metrics miss one input in each of the two experiments
	if logs.Len() != 14 {
		t.Errorf("Expected 14 warnings, got %d", logs.Len())
	}

	if len(files.storedFeatures) != 2 || files.storedFeatures[`b_qc.featureXML`] != fb {
		t.Errorf("Feature maps not stored as expected: %v", files.storedFeatures)
	}
	out := files.storedConsensus
	if out == nil {
		t.Fatalf("no consensus map stored")
	}
	if len(out.Features[0].PeptideIdentifications) != 1 || out.Features[0].PeptideIdentifications[0].UID() != `U1` {
		t.Errorf("Expected only U1 at feature 0 after conflict resolution")
	}
	u4 := out.UnassignedPeptideIdentifications[0]
	if v, _ := u4.Hits[0].Meta.Get(`missed_cleavages`); v != 0 {
		t.Errorf("Expected 0 missed cleavages for U4, got: %v", v)
	}
	if v, _ := u4.Meta.Get(msdata.MetaConsensusFeatureID); v != unassignedGroup {
		t.Errorf("Expected cf_id %d for U4, got: %v", unassignedGroup, v)
	}
}

func TestRunWithSpectra(t *testing.T) {
	observeLogger(t)
	cmap := testConsensus()
	fa, fb := testFeatureMaps(cmap)
	sa, sb := testSpectra()
	files := fakeFiles{
		consensus: cmap,
		features:  map[string]*msdata.FeatureMap{`a.featureXML`: fa, `b.featureXML`: fb},
		spectra:   map[string]*msdata.Experiment{`a.mzML`: sa, `b.mzML`: sb},
	}
	par := testParams(t, `-in_cm`, `in.consensusXML`, `-in_postFDR`, `a.featureXML,b.featureXML`,
		`-in_raw`, `a.mzML,b.mzML`, `-out`, `out.mzTab`)
	err := run(par, files.collaborators())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []mztab.Parameter{
		{CVLabel: `total ion current`, Accession: `MS:1000285`, Name: `TIC_1`, Value: `[10, 30]`},
		{CVLabel: `total ion current`, Accession: `MS:1000285`, Name: `TIC_2`, Value: `[5, 7]`},
		{CVLabel: `MS2 identification rate`, Accession: `null`, Name: `MS2_ID_Rate_1`, Value: `50`},
		{CVLabel: `MS2 identification rate`, Accession: `null`, Name: `MS2_ID_Rate_2`, Value: `100`},
	}
	if diff := cmp.Diff(want, files.report.Meta.Custom); diff != "" {
		t.Errorf("Custom fields mismatch (-want +got):\n%s", diff)
	}

	// s3 of experiment a was not identified
	unassigned := cmap.UnassignedPeptideIdentifications
	if len(unassigned) != 2 {
		t.Fatalf("Expected 2 unassigned identifications, got %d", len(unassigned))
	}
	added := unassigned[1]
	if added.Identifier != `run1` || len(added.Hits) != 0 {
		t.Errorf("Unexpected new identification: %+v", added)
	}
	if ref, _ := added.Meta.String(msdata.MetaSpectrumReference); ref != `s3` {
		t.Errorf("Expected spectrum reference s3, got: %s", ref)
	}
	u1 := cmap.Features[0].PeptideIdentifications[0]
	if v, _ := u1.Meta.Get(`ScanEventNumber`); v != 1 {
		t.Errorf("Expected scan event 1 for U1, got: %v", v)
	}
	if _, ok := u1.Hits[0].Meta.Get(`fragment_mass_error_ppm`); !ok {
		t.Errorf("Expected fragment mass errors at U1")
	}
	found := false
	for _, psm := range files.report.PSMs {
		if psm.SpectraRef == `ms_run[1]:s3` {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected PSM row for the new identification")
	}
}

func TestRunUnknownRunPath(t *testing.T) {
	observeLogger(t)
	cmap := testConsensus()
	fa, fb := testFeatureMaps(cmap)
	fa.ProteinIdentifications[0].SetPrimaryMSRunPath([]string{`c.mzML`})
	sa, sb := testSpectra()
	files := fakeFiles{
		consensus: cmap,
		features:  map[string]*msdata.FeatureMap{`a.featureXML`: fa, `b.featureXML`: fb},
		spectra:   map[string]*msdata.Experiment{`a.mzML`: sa, `b.mzML`: sb},
	}
	par := testParams(t, `-in_cm`, `in.consensusXML`, `-in_postFDR`, `a.featureXML,b.featureXML`,
		`-in_raw`, `a.mzML,b.mzML`, `-out`, `out.mzTab`)
	err := run(par, files.collaborators())
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Expected error: %v, got: %v", ErrInvalidParameter, err)
	}
	if !strings.Contains(err.Error(), `MS run 'c.mzML'`) {
		t.Errorf("Error does not name the run: %v", err)
	}
	if files.report != nil {
		t.Errorf("Report written after fatal error")
	}
}

func TestRunListLengthMismatch(t *testing.T) {
	observeLogger(t)
	files := fakeFiles{consensus: testConsensus()}
	par := testParams(t, `-in_cm`, `in.consensusXML`, `-in_postFDR`, `a.featureXML,b.featureXML,c.featureXML`,
		`-in_trafo`, `a.trafoXML,b.trafoXML,c.trafoXML,d.trafoXML`, `-out`, `out.mzTab`)
	err := run(par, files.collaborators())
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Expected error: %v, got: %v", ErrInvalidParameter, err)
	}
	if len(files.loaded) != 0 {
		t.Errorf("Expected no files loaded, got: %v", files.loaded)
	}
	if exitCode(err) != 2 {
		t.Errorf("Expected exit code 2, got %d", exitCode(err))
	}
}

func TestRunIOError(t *testing.T) {
	observeLogger(t)
	files := fakeFiles{consensus: testConsensus()}
	par := testParams(t, `-in_cm`, `in.consensusXML`, `-in_postFDR`, `missing.featureXML`, `-out`, `out.mzTab`)
	err := run(par, files.collaborators())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected error: %v, got: %v", os.ErrNotExist, err)
	}
	if exitCode(err) != 1 {
		t.Errorf("Expected exit code 1, got %d", exitCode(err))
	}
}

func TestFileList(t *testing.T) {
	var f fileList
	for _, v := range []string{`a.mzML, b.mzML`, `c.mzML`, ``} {
		if err := f.Set(v); err != nil {
			t.Errorf("Set(%q): %v", v, err)
		}
	}
	want := fileList{`a.mzML`, `b.mzML`, `c.mzML`}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("fileList mismatch (-want +got):\n%s", diff)
	}
	if f.String() != `a.mzML,b.mzML,c.mzML` {
		t.Errorf("Unexpected String(): %s", f.String())
	}
}

func TestSanatizeParams(t *testing.T) {
	tests := []struct {
		args []string
		ok   bool
	}{
		{[]string{`-in_cm`, `a.consensusXML`, `-out`, `a.mzTab`}, true},
		{[]string{`-out`, `a.mzTab`}, false},
		{[]string{`-in_cm`, `a.consensusXML`}, false},
		{[]string{`-in_cm`, `a.consensusXML`, `-out`, `a.mzTab`, `-fragment_mass_error_unit`, `mmu`}, false},
		{[]string{`-in_cm`, `a.consensusXML`, `-out`, `a.mzTab`, `-fragment_mass_error_tolerance`, `-1`}, false},
		{[]string{`-in_cm`, `a.consensusXML`, `-out`, `a.mzTab`, `extra`}, false},
	}
	for _, tt := range tests {
		fs := flag.NewFlagSet(`mzqc`, flag.ContinueOnError)
		par := defineFlags(fs)
		if err := fs.Parse(tt.args); err != nil {
			t.Fatalf("Parse(%v): %v", tt.args, err)
		}
		par.args = fs.Args()
		err := sanatizeParams(par)
		if tt.ok && err != nil {
			t.Errorf("sanatizeParams(%v): unexpected error %v", tt.args, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("sanatizeParams(%v): expected error: %v, got: %v", tt.args, ErrInvalidParameter, err)
		}
	}
}

func TestParamFile(t *testing.T) {
	dir := t.TempDir()
	ini := filepath.Join(dir, `qc.yaml`)
	err := os.WriteFile(ini, []byte(`in_cm: merged.consensusXML
out: qc.mzTab
in_postFDR:
  - a.featureXML
  - b.featureXML
force_no_fdr: true
fragment_mass_error_unit: ppm
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	fs := flag.NewFlagSet(`mzqc`, flag.ContinueOnError)
	par := defineFlags(fs)
	if err := fs.Parse([]string{`-ini`, ini, `-fragment_mass_error_unit`, `Da`}); err != nil {
		t.Fatal(err)
	}
	if err := applyParamFile(fs, *par.paramFile); err != nil {
		t.Fatalf("applyParamFile: %v", err)
	}
	if err := sanatizeParams(par); err != nil {
		t.Fatalf("sanatizeParams: %v", err)
	}
	if *par.inCM != `merged.consensusXML` || *par.out != `qc.mzTab` {
		t.Errorf("Unexpected files: %s %s", *par.inCM, *par.out)
	}
	if diff := cmp.Diff(fileList{`a.featureXML`, `b.featureXML`}, par.inPostFDR); diff != "" {
		t.Errorf("in_postFDR mismatch (-want +got):\n%s", diff)
	}
	if !*par.forceNoFDR {
		t.Errorf("Expected force_no_fdr")
	}
	if *par.fmeUnit != `Da` {
		t.Errorf("Expected command line unit Da, got: %s", *par.fmeUnit)
	}
}

func TestParamFileVerbosity(t *testing.T) {
	dir := t.TempDir()
	ini := filepath.Join(dir, `qc.yaml`)
	if err := os.WriteFile(ini, []byte("verbose: true\nversion: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	par, err := parseParams(flag.NewFlagSet(`mzqc`, flag.ContinueOnError), []string{`-ini`, ini})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if par.verbosity != infoVerbose {
		t.Errorf("Expected verbose output from parameter file, got verbosity %d", par.verbosity)
	}

	par, err = parseParams(flag.NewFlagSet(`mzqc`, flag.ContinueOnError), []string{`-ini`, ini, `-quiet`})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if par.verbosity != infoSilent {
		t.Errorf("Expected quiet output, got verbosity %d", par.verbosity)
	}
	if *par.version {
		t.Errorf("Unexpected version flag")
	}
}

func TestParamFileErrors(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		`unknown.yaml`: "in_mzid: a.mzid\n",
		`nested.yaml`:  "in_raw:\n  - [a.mzML, b.mzML]\n",
		`invalid.yaml`: "in_raw: [a.mzML\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		fs := flag.NewFlagSet(`mzqc`, flag.ContinueOnError)
		defineFlags(fs)
		err := applyParamFile(fs, path)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%s: expected error: %v, got: %v", name, ErrInvalidParameter, err)
		}
	}
	fs := flag.NewFlagSet(`mzqc`, flag.ContinueOnError)
	defineFlags(fs)
	if err := applyParamFile(fs, filepath.Join(dir, `absent.yaml`)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected error: %v, got: %v", os.ErrNotExist, err)
	}
}
