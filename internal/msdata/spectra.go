package msdata

import (
	"errors"
	"math"
	"sort"
)

// Peak contains the actual ms peak info
type Peak struct {
	Mz     float64
	Intens float64
}

// Precursor of an MSn spectrum
type Precursor struct {
	Mz     float64
	Charge int // 0 if unknown
}

// Spectrum is a single scan of an Experiment
type Spectrum struct {
	Index      int
	NativeID   string
	MSLevel    int
	RT         float64 // Retention time in seconds
	Centroided bool
	TIC        float64 // Total ion current recorded in the file, 0 if absent
	Precursors []Precursor
	Peaks      []Peak
}

// Experiment is the collection of spectra of one LC-MS run
type Experiment struct {
	SourceFile string
	Spectra    []Spectrum
}

// Empty returns true if the experiment holds no spectra
func (e *Experiment) Empty() bool {
	return e == nil || len(e.Spectra) == 0
}

// ErrUnknownNativeID means a spectrum reference could not be resolved
var ErrUnknownNativeID = errors.New("msdata: unknown spectrum native id")

type rtIndex struct {
	rt         float64
	spec       int
	precursors []Precursor
}

// matchesPrecursor returns true if one of the precursors lies within
// mzTol of mz
func (r *rtIndex) matchesPrecursor(mz, mzTol float64) bool {
	for _, p := range r.precursors {
		if math.Abs(p.Mz-mz) <= mzTol {
			return true
		}
	}
	return false
}

// SpectrumLookup finds spectra by native id or retention time
type SpectrumLookup struct {
	id2Index map[string]int
	ms2ByRT  []rtIndex
}

// NewSpectrumLookup indexes the spectra of exp
func NewSpectrumLookup(exp *Experiment) *SpectrumLookup {
	l := SpectrumLookup{
		id2Index: make(map[string]int, len(exp.Spectra)),
	}
	for i, s := range exp.Spectra {
		l.id2Index[s.NativeID] = i
		if s.MSLevel == 2 {
			l.ms2ByRT = append(l.ms2ByRT, rtIndex{rt: s.RT, spec: i, precursors: s.Precursors})
		}
	}
	sort.Slice(l.ms2ByRT, func(i, j int) bool { return l.ms2ByRT[i].rt < l.ms2ByRT[j].rt })
	return &l
}

// Index returns the spectrum index of a native id
func (l *SpectrumLookup) Index(nativeID string) (int, error) {
	if i, ok := l.id2Index[nativeID]; ok {
		return i, nil
	}
	return 0, ErrUnknownNativeID
}

// NearestMS2 returns the index of the MS2 spectrum closest in retention
// time to rt, restricted to spectra within rtTol seconds. If mz is
// positive, the spectrum must also have a precursor within mzTol of mz.
// The second return value is false if no such spectrum exists.
func (l *SpectrumLookup) NearestMS2(rt, rtTol, mz, mzTol float64) (int, bool) {
	j := sort.Search(len(l.ms2ByRT), func(i int) bool { return l.ms2ByRT[i].rt >= rt-rtTol })
	best := -1
	bestDiff := rtTol
	for k := j; k < len(l.ms2ByRT) && l.ms2ByRT[k].rt <= rt+rtTol; k++ {
		if mz > 0 && !l.ms2ByRT[k].matchesPrecursor(mz, mzTol) {
			continue
		}
		if d := math.Abs(l.ms2ByRT[k].rt - rt); d <= bestDiff {
			best = k
			bestDiff = d
		}
	}
	if best < 0 {
		return 0, false
	}
	return l.ms2ByRT[best].spec, true
}

// FASTAEntry is one protein of a sequence database
type FASTAEntry struct {
	Identifier  string
	Description string
	Sequence    string
}
