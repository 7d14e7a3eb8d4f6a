package mzml

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"
)

const testFile1 = "testdata/tiny.mzML"

func readTestFile(t *testing.T) MzML {
	t.Helper()
	x, err := os.Open(testFile1)
	if err != nil {
		t.Fatalf("Open %s: %v", testFile1, err)
	}
	defer x.Close()
	f, err := Read(x)
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	return f
}

func TestAll1(t *testing.T) {
	f := readTestFile(t)

	n := f.NumSpecs()
	if n != 3 {
		t.Errorf("NumSpecs: %d, should be 3", n)
	}
	p, err := f.ReadScan(0)
	if err != nil {
		t.Errorf("ReadScan: error return %v", err)
	}
	if len(p) != 3 {
		t.Fatalf("ReadScan: %d peaks, should be 3", len(p))
	}
	if p[1].Mz != 500.25 || p[1].Intens != 2000.0 {
		t.Errorf("ReadScan: peak 1 %+v", p[1])
	}
	centroid, err := f.Centroid(0)
	if err != nil {
		t.Errorf("Centroid: error return %v", err)
	}
	if !centroid {
		t.Errorf("Centroid: false, should be true")
	}
	_, err = f.Centroid(3)
	if err != ErrInvalidScanIndex {
		t.Errorf("Centroid: error return %v, should be ErrInvalidScanIndex", err)
	}
	msLevel, err := f.MSLevel(1)
	if err != nil {
		t.Errorf("MSLevel: error return %v", err)
	}
	if msLevel != 2 {
		t.Errorf("MSLevel: %d, should be 2", msLevel)
	}
	_, err = f.MSLevel(-1)
	if err != ErrInvalidScanIndex {
		t.Errorf("MSLevel: error return %v, should be ErrInvalidScanIndex", err)
	}
	tic, err := f.TotalIonCurrent(0)
	if err != nil || tic != 2400 {
		t.Errorf("TotalIonCurrent: %f, %v, should be 2400", tic, err)
	}
	tic, _ = f.TotalIonCurrent(1)
	if !math.IsNaN(tic) {
		t.Errorf("TotalIonCurrent: %f, should be NaN", tic)
	}

}

func TestRetentionTimeUnits(t *testing.T) {
	f := readTestFile(t)
	rt, err := f.RetentionTime(0)
	if err != nil || rt != 60 {
		t.Errorf("RetentionTime(0): %f, %v, should be 60", rt, err)
	}
	// Given in minutes
	rt, err = f.RetentionTime(1)
	if err != nil || math.Abs(rt-66) > 1e-9 {
		t.Errorf("RetentionTime(1): %f, %v, should be 66", rt, err)
	}
}

func TestPrecursors(t *testing.T) {
	f := readTestFile(t)
	precs, err := f.Precursors(1)
	if err != nil {
		t.Fatalf("Precursors: error return %v", err)
	}
	if len(precs) != 1 || precs[0].Mz != 500.25 || precs[0].Charge != 2 {
		t.Errorf("Precursors(1): %+v", precs)
	}
	// Only the isolation window target is available
	precs, err = f.Precursors(2)
	if err != nil {
		t.Fatalf("Precursors: error return %v", err)
	}
	if len(precs) != 1 || precs[0].Mz != 600.5 || precs[0].Charge != 0 {
		t.Errorf("Precursors(2): %+v", precs)
	}
}

func TestExperiment(t *testing.T) {
	exp, err := Load(testFile1)
	if err != nil {
		t.Fatalf("Load: error return %v", err)
	}
	if exp.SourceFile != testFile1 {
		t.Errorf("SourceFile: %s", exp.SourceFile)
	}
	if len(exp.Spectra) != 3 {
		t.Fatalf("Spectra: %d, should be 3", len(exp.Spectra))
	}
	s := exp.Spectra[2]
	// MS level and centroid flag come from the referenceable param group
	if s.MSLevel != 2 || !s.Centroided {
		t.Errorf("spectrum 2: ms level %d centroided %v", s.MSLevel, s.Centroided)
	}
	if s.NativeID != `scan=3` || s.RT != 70 {
		t.Errorf("spectrum 2: id %s rt %f", s.NativeID, s.RT)
	}
	if exp.Spectra[0].TIC != 2400 || s.TIC != 0 {
		t.Errorf("recorded TIC: %f %f, should be 2400 and 0", exp.Spectra[0].TIC, s.TIC)
	}
	if len(s.Peaks) != 2 || s.Peaks[0].Mz != 200 || s.Peaks[1].Intens != 5 {
		t.Errorf("spectrum 2 peaks: %+v", s.Peaks)
	}
	if math.Abs(exp.Spectra[1].Peaks[0].Mz-147.1128) > 1e-4 {
		t.Errorf("spectrum 1 peak 0: %f", exp.Spectra[1].Peaks[0].Mz)
	}
}

func TestNumpressRejected(t *testing.T) {
	doc := `<mzML xmlns="http://psi.hupo.org/ms/mzml"><run><spectrumList count="1">
<spectrum index="0" id="s0" defaultArrayLength="1"><binaryDataArrayList count="1">
<binaryDataArray><cvParam accession="MS:1002312"/><cvParam accession="MS:1000514"/><binary>AAAA</binary></binaryDataArray>
</binaryDataArrayList></spectrum></spectrumList></run></mzML>`
	f, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	_, err = f.ReadScan(0)
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("ReadScan: error return %v, should be ErrUnsupportedCompression", err)
	}
}
