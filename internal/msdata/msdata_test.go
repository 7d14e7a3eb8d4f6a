package msdata

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetaInfoCopyFrom(t *testing.T) {
	var dst, src MetaInfo
	dst.Set(`keep`, 1)
	dst.Set(`over`, `old`)
	list := []float64{1, 2}
	src.Set(`over`, `new`)
	src.Set(`list`, list)
	list[0] = 42

	dst.CopyFrom(src)
	dst.CopyFrom(src)

	if diff := cmp.Diff([]string{`keep`, `list`, `over`}, dst.Keys()); diff != `` {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := dst.String(`over`); v != `new` {
		t.Errorf("over: %s, should be new", v)
	}
	v, _ := dst.Get(`list`)
	if diff := cmp.Diff([]float64{1, 2}, v); diff != `` {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	// Lists are not shared between copies
	v.([]float64)[1] = 7
	v, _ = src.Get(`list`)
	if v.([]float64)[1] != 2 {
		t.Errorf("source list modified through copy")
	}
	dst.Remove(`keep`)
	if dst.Exists(`keep`) || dst.Len() != 2 {
		t.Errorf("Remove: keys %v", dst.Keys())
	}
}

func TestPeptideIdentificationClone(t *testing.T) {
	id := PeptideIdentification{Hits: []PeptideHit{{Sequence: `PEPTIDE`, Accessions: []string{`P1`}}}}
	id.Meta.Set(MetaUID, `u1`)
	c := id.Clone()
	c.Meta.Set(MetaUID, `u2`)
	c.Hits[0].Accessions[0] = `P2`
	c.Hits[0].Meta.Set(`x`, 1)
	if id.UID() != `u1` || id.Hits[0].Accessions[0] != `P1` || id.Hits[0].Meta.Exists(`x`) {
		t.Errorf("Clone shares data with the original: %+v", id)
	}
}

func TestSortHits(t *testing.T) {
	id := PeptideIdentification{
		HigherScoreBetter: false,
		Hits: []PeptideHit{
			{Sequence: `B`, Score: 0.5},
			{Sequence: `A`, Score: 0.01},
			{Sequence: `C`, Score: 0.5},
		},
	}
	id.SortHits()
	var got []string
	for _, h := range id.Hits {
		got = append(got, h.Sequence)
	}
	if diff := cmp.Diff([]string{`A`, `B`, `C`}, got); diff != `` {
		t.Errorf("SortHits mismatch (-want +got):\n%s", diff)
	}
	if id.Hits[2].Rank != 3 {
		t.Errorf("Rank: %d, should be 3", id.Hits[2].Rank)
	}
}

func TestPrimaryMSRunPath(t *testing.T) {
	runs := []ProteinIdentification{{}, {}, {}}
	runs[0].SetPrimaryMSRunPath([]string{`a.mzML`, `b.mzML`})
	runs[1].Meta.Set(MetaSpectraData, `b.mzML`)
	runs[2].SetPrimaryMSRunPath([]string{`c.mzML`})
	fm := FeatureMap{ProteinIdentifications: runs}
	if diff := cmp.Diff([]string{`a.mzML`, `b.mzML`, `c.mzML`}, fm.PrimaryMSRunPath()); diff != `` {
		t.Errorf("PrimaryMSRunPath mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePeptide(t *testing.T) {
	p, err := ParsePeptide(`.(Acetyl)PEPTM(Oxidation)IDEK(Label:13C(6)15N(2)).(Amidated)`)
	if err != nil {
		t.Fatalf("ParsePeptide: error return %v", err)
	}
	if p.Unmodified() != `PEPTMIDEK` {
		t.Errorf("Unmodified: %s", p.Unmodified())
	}
	if p.NTermMod != `Acetyl` || p.CTermMod != `Amidated` {
		t.Errorf("terminal mods: %q %q", p.NTermMod, p.CTermMod)
	}
	if p.Residues[4].Mod != `Oxidation` || p.Residues[8].Mod != `Label:13C(6)15N(2)` {
		t.Errorf("residue mods: %+v", p.Residues)
	}
	if !p.Modified() {
		t.Errorf("Modified: false, should be true")
	}

	p, err = ParsePeptide(`PEPC[160]K`)
	if err != nil || p.Residues[3].Mod != `160` {
		t.Errorf("ParsePeptide: %+v, %v", p, err)
	}
	p, _ = ParsePeptide(`PEPTIDE`)
	if p.Modified() {
		t.Errorf("Modified: true, should be false")
	}

	for _, bad := range []string{`PEP(Oxidation`, `pep`, `PEP.K`} {
		if _, err := ParsePeptide(bad); !errors.Is(err, ErrInvalidSequence) {
			t.Errorf("ParsePeptide(%s): error return %v, should be ErrInvalidSequence", bad, err)
		}
	}
}

func TestTransformation(t *testing.T) {
	tr := Transformation{Model: ModelLinear, Pairs: []RTPair{{0, 1}, {10, 21}, {20, 41}}}
	if rt := tr.Apply(5); rt != 5 {
		t.Errorf("Apply before Fit: %f, should be 5", rt)
	}
	if err := tr.Fit(); err != nil {
		t.Fatalf("Fit: error return %v", err)
	}
	if rt := tr.Apply(5); math.Abs(rt-11) > 1e-9 {
		t.Errorf("Apply(5): %f, should be 11", rt)
	}

	tr = Transformation{Model: ModelInterpolated, Pairs: []RTPair{{0, 0}}}
	if err := tr.Fit(); err == nil {
		t.Errorf("Fit: no error for a single data point")
	}
	tr = Transformation{Model: `spline_of_doom`}
	if err := tr.Fit(); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Fit: error return %v, should be ErrUnknownModel", err)
	}
	tr = Transformation{Model: ModelIdentity}
	if err := tr.Fit(); err != nil || tr.Apply(3) != 3 {
		t.Errorf("identity: %f, %v", tr.Apply(3), err)
	}
}

func TestSpectrumLookup(t *testing.T) {
	exp := Experiment{Spectra: []Spectrum{
		{NativeID: `s1`, MSLevel: 1, RT: 10},
		{NativeID: `s2`, MSLevel: 2, RT: 11},
		{NativeID: `s3`, MSLevel: 2, RT: 15, Precursors: []Precursor{{Mz: 500.25, Charge: 2}}},
		{NativeID: `s4`, MSLevel: 1, RT: 16},
		{NativeID: `s5`, MSLevel: 2, RT: 15.5, Precursors: []Precursor{{Mz: 622.8}}},
	}}
	l := NewSpectrumLookup(&exp)
	if i, err := l.Index(`s3`); err != nil || i != 2 {
		t.Errorf("Index(s3): %d, %v", i, err)
	}
	if _, err := l.Index(`nope`); !errors.Is(err, ErrUnknownNativeID) {
		t.Errorf("Index: error return %v, should be ErrUnknownNativeID", err)
	}
	if i, ok := l.NearestMS2(14, 2, 0, 0); !ok || i != 2 {
		t.Errorf("NearestMS2(14): %d, %v", i, ok)
	}
	if _, ok := l.NearestMS2(30, 2, 0, 0); ok {
		t.Errorf("NearestMS2(30): found a spectrum outside the tolerance")
	}
	// s3 is closer in retention time, but only s5 has the precursor
	if i, ok := l.NearestMS2(14.9, 2, 622.81, 0.05); !ok || i != 4 {
		t.Errorf("NearestMS2(14.9, 622.81): %d, %v", i, ok)
	}
	if i, ok := l.NearestMS2(15.4, 2, 500.25, 0.05); !ok || i != 2 {
		t.Errorf("NearestMS2(15.4, 500.25): %d, %v", i, ok)
	}
	// s2 has no precursor to compare
	if _, ok := l.NearestMS2(11, 2, 700, 0.05); ok {
		t.Errorf("NearestMS2(11, 700): found a spectrum without matching precursor")
	}
}
