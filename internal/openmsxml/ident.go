package openmsxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

type xmlIdentificationRun struct {
	ID                    string                   `xml:"id,attr"`
	Date                  string                   `xml:"date,attr"`
	SearchEngine          string                   `xml:"search_engine,attr"`
	SearchEngineVersion   string                   `xml:"search_engine_version,attr"`
	SearchParameters      xmlSearchParameters      `xml:"SearchParameters"`
	ProteinIdentification xmlProteinIdentification `xml:"ProteinIdentification"`
	UserParams            []xmlUserParam           `xml:"UserParam,omitempty"`
}

type xmlModification struct {
	Name string `xml:"name,attr"`
}

type xmlSearchParameters struct {
	DB                        string            `xml:"db,attr"`
	DBVersion                 string            `xml:"db_version,attr"`
	Charges                   string            `xml:"charges,attr"`
	MassType                  string            `xml:"mass_type,attr"`
	Enzyme                    string            `xml:"enzyme,attr,omitempty"`
	MissedCleavages           int               `xml:"missed_cleavages,attr"`
	PrecursorPeakTolerance    float64           `xml:"precursor_peak_tolerance,attr"`
	PrecursorPeakTolerancePPM bool              `xml:"precursor_peak_tolerance_ppm,attr"`
	PeakMassTolerance         float64           `xml:"peak_mass_tolerance,attr"`
	PeakMassTolerancePPM      bool              `xml:"peak_mass_tolerance_ppm,attr"`
	FixedModifications        []xmlModification `xml:"FixedModification,omitempty"`
	VariableModifications     []xmlModification `xml:"VariableModification,omitempty"`
}

type xmlProteinIdentification struct {
	ScoreType             string          `xml:"score_type,attr"`
	HigherScoreBetter     bool            `xml:"higher_score_better,attr"`
	SignificanceThreshold float64         `xml:"significance_threshold,attr"`
	ProteinHits           []xmlProteinHit `xml:"ProteinHit,omitempty"`
	UserParams            []xmlUserParam  `xml:"UserParam,omitempty"`
}

type xmlProteinHit struct {
	ID         string         `xml:"id,attr"`
	Accession  string         `xml:"accession,attr"`
	Score      float64        `xml:"score,attr"`
	Sequence   string         `xml:"sequence,attr"`
	UserParams []xmlUserParam `xml:"UserParam,omitempty"`
}

type xmlPeptideIdentification struct {
	RunRef                string          `xml:"identification_run_ref,attr"`
	ScoreType             string          `xml:"score_type,attr"`
	HigherScoreBetter     bool            `xml:"higher_score_better,attr"`
	SignificanceThreshold float64         `xml:"significance_threshold,attr"`
	MZ                    float64         `xml:"MZ,attr"`
	RT                    float64         `xml:"RT,attr"`
	Hits                  []xmlPeptideHit `xml:"PeptideHit,omitempty"`
	UserParams            []xmlUserParam  `xml:"UserParam,omitempty"`
}

type xmlPeptideHit struct {
	Score       float64        `xml:"score,attr"`
	Sequence    string         `xml:"sequence,attr"`
	Charge      int            `xml:"charge,attr"`
	ProteinRefs string         `xml:"protein_refs,attr,omitempty"`
	UserParams  []xmlUserParam `xml:"UserParam,omitempty"`
}

// runIdentifier builds the identifier of a run the way OpenMS does
// when reading XML files
func runIdentifier(searchEngine, date string) string {
	return searchEngine + "_" + date
}

// idReader resolves the file local references of identifications
type idReader struct {
	runIdentifier map[string]string // IdentificationRun id -> identifier
	accession     map[string]string // ProteinHit id -> accession
}

func (r *idReader) readRuns(xruns []xmlIdentificationRun) ([]msdata.ProteinIdentification, error) {
	r.runIdentifier = make(map[string]string, len(xruns))
	r.accession = make(map[string]string)
	runs := make([]msdata.ProteinIdentification, 0, len(xruns))
	for _, xr := range xruns {
		xp := xr.ProteinIdentification
		run := msdata.ProteinIdentification{
			Identifier:            runIdentifier(xr.SearchEngine, xr.Date),
			SearchEngine:          xr.SearchEngine,
			SearchEngineVersion:   xr.SearchEngineVersion,
			Date:                  xr.Date,
			ScoreType:             xp.ScoreType,
			HigherScoreBetter:     xp.HigherScoreBetter,
			SignificanceThreshold: xp.SignificanceThreshold,
			SearchParameters: msdata.SearchParameters{
				DB:                        xr.SearchParameters.DB,
				DBVersion:                 xr.SearchParameters.DBVersion,
				Enzyme:                    xr.SearchParameters.Enzyme,
				MissedCleavages:           xr.SearchParameters.MissedCleavages,
				FragmentMassTolerance:     xr.SearchParameters.PeakMassTolerance,
				FragmentMassTolerancePPM:  xr.SearchParameters.PeakMassTolerancePPM,
				PrecursorMassTolerance:    xr.SearchParameters.PrecursorPeakTolerance,
				PrecursorMassTolerancePPM: xr.SearchParameters.PrecursorPeakTolerancePPM,
				Charges:                   xr.SearchParameters.Charges,
			},
		}
		for _, m := range xr.SearchParameters.FixedModifications {
			run.SearchParameters.FixedModifications = append(run.SearchParameters.FixedModifications, m.Name)
		}
		for _, m := range xr.SearchParameters.VariableModifications {
			run.SearchParameters.VariableModifications = append(run.SearchParameters.VariableModifications, m.Name)
		}
		for _, xh := range xp.ProteinHits {
			meta, err := decodeMeta(xh.UserParams)
			if err != nil {
				return nil, err
			}
			run.Hits = append(run.Hits, msdata.ProteinHit{
				Accession: xh.Accession,
				Score:     xh.Score,
				Sequence:  xh.Sequence,
				Meta:      meta,
			})
			r.accession[xh.ID] = xh.Accession
		}
		meta, err := decodeMeta(xp.UserParams)
		if err != nil {
			return nil, err
		}
		run.Meta = meta
		r.runIdentifier[xr.ID] = run.Identifier
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *idReader) readPeptideIDs(xids []xmlPeptideIdentification) ([]msdata.PeptideIdentification, error) {
	if len(xids) == 0 {
		return nil, nil
	}
	ids := make([]msdata.PeptideIdentification, 0, len(xids))
	for _, x := range xids {
		id := msdata.PeptideIdentification{
			Identifier:            r.runIdentifier[x.RunRef],
			RT:                    x.RT,
			MZ:                    x.MZ,
			ScoreType:             x.ScoreType,
			HigherScoreBetter:     x.HigherScoreBetter,
			SignificanceThreshold: x.SignificanceThreshold,
		}
		if x.RunRef != `` && id.Identifier == `` {
			return nil, fmt.Errorf("%w: identification_run_ref %s", ErrUnknownReference, x.RunRef)
		}
		for rank, xh := range x.Hits {
			meta, err := decodeMeta(xh.UserParams)
			if err != nil {
				return nil, err
			}
			hit := msdata.PeptideHit{
				Sequence: xh.Sequence,
				Score:    xh.Score,
				Rank:     rank + 1,
				Charge:   xh.Charge,
				Meta:     meta,
			}
			for _, ref := range strings.Fields(xh.ProteinRefs) {
				if acc, ok := r.accession[ref]; ok {
					hit.Accessions = append(hit.Accessions, acc)
				}
			}
			id.Hits = append(id.Hits, hit)
		}
		meta, err := decodeMeta(x.UserParams)
		if err != nil {
			return nil, err
		}
		id.Meta = meta
		ids = append(ids, id)
	}
	return ids, nil
}

// idWriter assigns file local references to runs and protein hits
type idWriter struct {
	runs    []msdata.ProteinIdentification
	runRef  map[string]string // identifier -> IdentificationRun id
	protRef map[string]string // accession -> ProteinHit id
}

// newIDWriter prepares runs for writing. Accessions of peptide hits
// that have no matching protein hit are added to the run of the
// identification (or the first run).
func newIDWriter(runs []msdata.ProteinIdentification, forEach func(func(*msdata.PeptideIdentification))) *idWriter {
	w := idWriter{
		runs:    make([]msdata.ProteinIdentification, len(runs)),
		runRef:  make(map[string]string, len(runs)),
		protRef: make(map[string]string),
	}
	copy(w.runs, runs)
	known := make(map[string]bool)
	for i := range w.runs {
		w.runs[i].Hits = append([]msdata.ProteinHit(nil), w.runs[i].Hits...)
		if _, ok := w.runRef[w.runs[i].Identifier]; !ok {
			w.runRef[w.runs[i].Identifier] = "PI_" + strconv.Itoa(i)
		}
		for _, h := range w.runs[i].Hits {
			known[h.Accession] = true
		}
	}
	if len(w.runs) > 0 {
		forEach(func(id *msdata.PeptideIdentification) {
			for _, h := range id.Hits {
				for _, acc := range h.Accessions {
					if known[acc] {
						continue
					}
					known[acc] = true
					ri := w.runIndex(id.Identifier)
					w.runs[ri].Hits = append(w.runs[ri].Hits, msdata.ProteinHit{Accession: acc})
				}
			}
		})
	}
	n := 0
	for i := range w.runs {
		for _, h := range w.runs[i].Hits {
			if _, ok := w.protRef[h.Accession]; !ok {
				w.protRef[h.Accession] = "PH_" + strconv.Itoa(n)
			}
			n++
		}
	}
	return &w
}

func (w *idWriter) runIndex(identifier string) int {
	for i := range w.runs {
		if w.runs[i].Identifier == identifier {
			return i
		}
	}
	return 0
}

func (w *idWriter) writeRuns() []xmlIdentificationRun {
	xruns := make([]xmlIdentificationRun, 0, len(w.runs))
	n := 0
	for i, run := range w.runs {
		sp := run.SearchParameters
		xr := xmlIdentificationRun{
			ID:                  "PI_" + strconv.Itoa(i),
			Date:                run.Date,
			SearchEngine:        run.SearchEngine,
			SearchEngineVersion: run.SearchEngineVersion,
			SearchParameters: xmlSearchParameters{
				DB:                        sp.DB,
				DBVersion:                 sp.DBVersion,
				Charges:                   sp.Charges,
				MassType:                  `monoisotopic`,
				Enzyme:                    sp.Enzyme,
				MissedCleavages:           sp.MissedCleavages,
				PrecursorPeakTolerance:    sp.PrecursorMassTolerance,
				PrecursorPeakTolerancePPM: sp.PrecursorMassTolerancePPM,
				PeakMassTolerance:         sp.FragmentMassTolerance,
				PeakMassTolerancePPM:      sp.FragmentMassTolerancePPM,
			},
			ProteinIdentification: xmlProteinIdentification{
				ScoreType:             run.ScoreType,
				HigherScoreBetter:     run.HigherScoreBetter,
				SignificanceThreshold: run.SignificanceThreshold,
				UserParams:            encodeMeta(run.Meta),
			},
		}
		for _, m := range sp.FixedModifications {
			xr.SearchParameters.FixedModifications = append(xr.SearchParameters.FixedModifications, xmlModification{Name: m})
		}
		for _, m := range sp.VariableModifications {
			xr.SearchParameters.VariableModifications = append(xr.SearchParameters.VariableModifications, xmlModification{Name: m})
		}
		for _, h := range run.Hits {
			xr.ProteinIdentification.ProteinHits = append(xr.ProteinIdentification.ProteinHits, xmlProteinHit{
				ID:         "PH_" + strconv.Itoa(n),
				Accession:  h.Accession,
				Score:      h.Score,
				Sequence:   h.Sequence,
				UserParams: encodeMeta(h.Meta),
			})
			n++
		}
		xruns = append(xruns, xr)
	}
	return xruns
}

func (w *idWriter) writePeptideIDs(ids []msdata.PeptideIdentification) []xmlPeptideIdentification {
	if len(ids) == 0 {
		return nil
	}
	xids := make([]xmlPeptideIdentification, 0, len(ids))
	for _, id := range ids {
		x := xmlPeptideIdentification{
			RunRef:                w.runRef[id.Identifier],
			ScoreType:             id.ScoreType,
			HigherScoreBetter:     id.HigherScoreBetter,
			SignificanceThreshold: id.SignificanceThreshold,
			MZ:                    id.MZ,
			RT:                    id.RT,
			UserParams:            encodeMeta(id.Meta),
		}
		for _, h := range id.Hits {
			var refs []string
			for _, acc := range h.Accessions {
				if ref, ok := w.protRef[acc]; ok {
					refs = append(refs, ref)
				}
			}
			x.Hits = append(x.Hits, xmlPeptideHit{
				Score:       h.Score,
				Sequence:    h.Sequence,
				Charge:      h.Charge,
				ProteinRefs: strings.Join(refs, " "),
				UserParams:  encodeMeta(h.Meta),
			})
		}
		xids = append(xids, x)
	}
	return xids
}
