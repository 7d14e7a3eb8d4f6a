package mztab

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
	"github.com/google/uuid"
)

// ExportOptions selects what parts of a consensus map are exported
type ExportOptions struct {
	ExportUnidentifiedFeatures bool // PEP rows for features without identification
	ExportUnassignedIDs        bool // PSM rows for unassigned identifications
	ExportSubfeatures          bool // per map abundances of the grouped features
	ExportEmptyIDs             bool // PSM rows for identifications without hits
	Description                string
}

const (
	optPrefix        = `opt_global_`
	optFeatureColumn = optPrefix + `feature_id`
)

// exporter keeps the run lookup tables of one export
type exporter struct {
	runs   map[string]*msdata.ProteinIdentification
	msRun  map[string]int // run identifier -> 1-based ms_run index
	nMaps  int
	opts   ExportOptions
	nextID int
}

// Export converts a consensus map into an mzTab document
func Export(cmap *msdata.ConsensusMap, sourcePath string, opts ExportOptions) (*Document, error) {
	e := exporter{
		runs:   make(map[string]*msdata.ProteinIdentification),
		msRun:  make(map[string]int),
		nMaps:  len(cmap.ColumnHeaders),
		opts:   opts,
		nextID: 1,
	}
	doc := Document{Meta: e.metaData(cmap, sourcePath)}

	for i := range cmap.Features {
		f := &cmap.Features[i]
		if len(f.PeptideIdentifications) == 0 && !opts.ExportUnidentifiedFeatures {
			continue
		}
		row, err := e.peptideRow(f)
		if err != nil {
			return nil, err
		}
		doc.Peptides = append(doc.Peptides, row)
	}
	if len(doc.Peptides) > 0 {
		doc.PeptideOptColumns = []string{optFeatureColumn}
	}

	for i := range cmap.Features {
		for j := range cmap.Features[i].PeptideIdentifications {
			if err := e.addPSM(&doc, &cmap.Features[i].PeptideIdentifications[j]); err != nil {
				return nil, err
			}
		}
	}
	if opts.ExportUnassignedIDs {
		for i := range cmap.UnassignedPeptideIdentifications {
			if err := e.addPSM(&doc, &cmap.UnassignedPeptideIdentifications[i]); err != nil {
				return nil, err
			}
		}
	}
	doc.PSMOptColumns = optColumns(doc.PSMs)
	return &doc, nil
}

func (e *exporter) metaData(cmap *msdata.ConsensusMap, sourcePath string) MetaData {
	md := MetaData{
		Version:     Version,
		Mode:        `Summary`,
		Type:        `Quantification`,
		ID:          uuid.NewString(),
		Description: e.opts.Description,
	}
	if md.Description == `` {
		md.Description = `Export of ` + sourcePath
	}

	runIndex := make(map[string]int)
	addRun := func(path string) int {
		if k, ok := runIndex[path]; ok {
			return k
		}
		md.MSRuns = append(md.MSRuns, path)
		runIndex[path] = len(md.MSRuns)
		return len(md.MSRuns)
	}
	scoreSeen := make(map[string]bool)
	engineSeen := make(map[string]bool)
	fixedSeen := make(map[string]bool)
	varSeen := make(map[string]bool)
	for i := range cmap.ProteinIdentifications {
		run := &cmap.ProteinIdentifications[i]
		e.runs[run.Identifier] = run
		for k, p := range run.PrimaryMSRunPath() {
			idx := addRun(p)
			if k == 0 {
				e.msRun[run.Identifier] = idx
			}
		}
		engine := run.SearchEngine + " " + run.SearchEngineVersion
		if run.SearchEngine != `` && !engineSeen[engine] {
			engineSeen[engine] = true
			md.SearchEngines = append(md.SearchEngines, Parameter{Name: run.SearchEngine, Value: run.SearchEngineVersion})
		}
		if run.ScoreType != `` && !scoreSeen[run.ScoreType] {
			scoreSeen[run.ScoreType] = true
			md.PSMScores = append(md.PSMScores, Parameter{Name: run.ScoreType})
			md.PeptideScores = append(md.PeptideScores, Parameter{Name: run.ScoreType})
		}
		for _, m := range run.SearchParameters.FixedModifications {
			if !fixedSeen[m] {
				fixedSeen[m] = true
				md.FixedMods = append(md.FixedMods, Parameter{Name: m})
			}
		}
		for _, m := range run.SearchParameters.VariableModifications {
			if !varSeen[m] {
				varSeen[m] = true
				md.VariableMods = append(md.VariableMods, Parameter{Name: m})
			}
		}
	}
	if len(md.MSRuns) == 0 {
		for _, h := range cmap.ColumnHeaders {
			addRun(h.Filename)
		}
	}
	if len(md.MSRuns) == 0 {
		addRun(sourcePath)
	}
	for _, h := range cmap.ColumnHeaders {
		md.StudyVariables = append(md.StudyVariables, h.Filename)
	}
	if len(md.PSMScores) == 0 {
		md.PSMScores = []Parameter{{Name: `score`}}
		md.PeptideScores = []Parameter{{Name: `score`}}
	}
	if len(md.FixedMods) == 0 {
		md.FixedMods = []Parameter{{CVLabel: `MS`, Accession: `MS:1002453`, Name: `No fixed modifications searched`}}
	}
	if len(md.VariableMods) == 0 {
		md.VariableMods = []Parameter{{CVLabel: `MS`, Accession: `MS:1002454`, Name: `No variable modifications searched`}}
	}
	return md
}

func (e *exporter) peptideRow(f *msdata.ConsensusFeature) (PeptideRow, error) {
	row := PeptideRow{
		Sequence:      Null,
		Accession:     Null,
		Unique:        Null,
		Database:      Null,
		DBVersion:     Null,
		SearchEngine:  Null,
		BestScore:     Null,
		Modifications: Null,
		RT:            FormatDouble(f.RT),
		Charge:        strconv.Itoa(f.Charge),
		MZ:            FormatDouble(f.MZ),
		Abundances:    make([]string, e.nMaps),
		Opt:           map[string]string{optFeatureColumn: strconv.FormatUint(f.UniqueID, 10)},
	}
	for i := range row.Abundances {
		row.Abundances[i] = Null
	}
	if e.opts.ExportSubfeatures {
		for _, el := range f.Elements {
			if el.MapIndex >= 0 && el.MapIndex < e.nMaps {
				row.Abundances[el.MapIndex] = FormatDouble(el.Intensity)
			}
		}
	}
	for i := range f.PeptideIdentifications {
		id := &f.PeptideIdentifications[i]
		if len(id.Hits) == 0 {
			continue
		}
		hit := &id.Hits[0]
		pep, err := msdata.ParsePeptide(hit.Sequence)
		if err != nil {
			return row, err
		}
		row.Sequence = pep.Unmodified()
		row.Modifications = modifications(pep)
		row.Accession, row.Unique = accessions(hit.Accessions)
		row.Database, row.DBVersion, row.SearchEngine = e.runColumns(id.Identifier)
		row.BestScore = FormatDouble(hit.Score)
		break
	}
	return row, nil
}

func (e *exporter) addPSM(doc *Document, id *msdata.PeptideIdentification) error {
	if len(id.Hits) == 0 && !e.opts.ExportEmptyIDs {
		return nil
	}
	row := PSMRow{
		Sequence:      Null,
		PSMID:         e.nextID,
		Accession:     Null,
		Unique:        Null,
		Score:         Null,
		Modifications: Null,
		RT:            FormatDouble(id.RT),
		Charge:        Null,
		ExpMZ:         FormatDouble(id.MZ),
		CalcMZ:        Null,
		SpectraRef:    Null,
		Opt:           make(map[string]string),
	}
	e.nextID++
	row.Database, row.DBVersion, row.SearchEngine = e.runColumns(id.Identifier)
	if ref, ok := id.Meta.String(msdata.MetaSpectrumReference); ok && ref != `` {
		k, ok := e.msRun[id.Identifier]
		if !ok {
			k = 1
		}
		row.SpectraRef = fmt.Sprintf("ms_run[%d]:%s", k, ref)
	}
	addOpt(row.Opt, id.Meta)
	if len(id.Hits) > 0 {
		hit := &id.Hits[0]
		pep, err := msdata.ParsePeptide(hit.Sequence)
		if err != nil {
			return err
		}
		row.Sequence = pep.Unmodified()
		row.Modifications = modifications(pep)
		row.Accession, row.Unique = accessions(hit.Accessions)
		row.Score = FormatDouble(hit.Score)
		row.Charge = strconv.Itoa(hit.Charge)
		addOpt(row.Opt, hit.Meta)
	}
	doc.PSMs = append(doc.PSMs, row)
	return nil
}

func (e *exporter) runColumns(identifier string) (db, dbVersion, engine string) {
	run, ok := e.runs[identifier]
	if !ok {
		return Null, Null, Null
	}
	db, dbVersion, engine = Null, Null, Null
	if run.SearchParameters.DB != `` {
		db = run.SearchParameters.DB
	}
	if run.SearchParameters.DBVersion != `` {
		dbVersion = run.SearchParameters.DBVersion
	}
	if run.SearchEngine != `` {
		engine = Parameter{Name: run.SearchEngine, Value: run.SearchEngineVersion}.String()
	}
	return db, dbVersion, engine
}

func accessions(accs []string) (accession, unique string) {
	switch len(accs) {
	case 0:
		return Null, Null
	case 1:
		return accs[0], `1`
	}
	return strings.Join(accs, ","), `0`
}

// modifications lists the modified positions as "pos-name", with
// position 0 for the N-terminus
func modifications(p msdata.Peptide) string {
	var mods []string
	if p.NTermMod != `` {
		mods = append(mods, "0-"+p.NTermMod)
	}
	for i, r := range p.Residues {
		if r.Mod != `` {
			mods = append(mods, strconv.Itoa(i+1)+"-"+r.Mod)
		}
	}
	if p.CTermMod != `` {
		mods = append(mods, strconv.Itoa(len(p.Residues)+1)+"-"+p.CTermMod)
	}
	if len(mods) == 0 {
		return Null
	}
	return strings.Join(mods, ",")
}

// addOpt stores every meta value as an optional column
func addOpt(opt map[string]string, m msdata.MetaInfo) {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		cell := metaCell(v)
		if cell == `` {
			cell = Null
		}
		opt[optColumn(k)] = cell
	}
}

func optColumn(key string) string {
	return optPrefix + strings.NewReplacer(" ", "_", "\t", "_").Replace(key)
}

func metaCell(v any) string {
	switch t := v.(type) {
	case string:
		if t == `` {
			return Null
		}
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return FormatDouble(t)
	case []int:
		items := make([]string, len(t))
		for i, x := range t {
			items[i] = strconv.Itoa(x)
		}
		return strings.Join(items, ",")
	case []float64:
		items := make([]string, len(t))
		for i, x := range t {
			items[i] = FormatDouble(x)
		}
		return strings.Join(items, ",")
	case []string:
		return strings.Join(t, ",")
	}
	return fmt.Sprint(v)
}

// optColumns returns the sorted union of the optional columns of all rows
func optColumns(rows []PSMRow) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for c := range r.Opt {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
