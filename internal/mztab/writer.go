package mztab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Store writes doc to the file at path
func Store(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := Write(w, doc); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// lineWriter writes tab separated lines and remembers the first error
type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) line(cells ...string) {
	if lw.err != nil {
		return
	}
	_, lw.err = io.WriteString(lw.w, strings.Join(cells, "\t")+"\n")
}

// Write writes doc in mzTab text format
func Write(w io.Writer, doc *Document) error {
	lw := lineWriter{w: w}
	writeMeta(&lw, &doc.Meta)

	if len(doc.Peptides) > 0 {
		lw.line()
		header := []string{`PEH`, `sequence`, `accession`, `unique`, `database`, `database_version`,
			`search_engine`, `best_search_engine_score[1]`, `modifications`, `retention_time`,
			`charge`, `mass_to_charge`}
		for i := range doc.Meta.StudyVariables {
			header = append(header, fmt.Sprintf("peptide_abundance_study_variable[%d]", i+1))
		}
		header = append(header, doc.PeptideOptColumns...)
		lw.line(header...)
		for _, r := range doc.Peptides {
			cells := []string{`PEP`, r.Sequence, r.Accession, r.Unique, r.Database, r.DBVersion,
				r.SearchEngine, r.BestScore, r.Modifications, r.RT, r.Charge, r.MZ}
			cells = append(cells, r.Abundances...)
			cells = append(cells, optCells(r.Opt, doc.PeptideOptColumns)...)
			lw.line(cells...)
		}
	}

	if len(doc.PSMs) > 0 {
		lw.line()
		header := []string{`PSH`, `sequence`, `PSM_ID`, `accession`, `unique`, `database`,
			`database_version`, `search_engine`, `search_engine_score[1]`, `modifications`,
			`retention_time`, `charge`, `exp_mass_to_charge`, `calc_mass_to_charge`,
			`spectra_ref`, `pre`, `post`, `start`, `end`}
		header = append(header, doc.PSMOptColumns...)
		lw.line(header...)
		for _, r := range doc.PSMs {
			cells := []string{`PSM`, r.Sequence, strconv.Itoa(r.PSMID), r.Accession, r.Unique,
				r.Database, r.DBVersion, r.SearchEngine, r.Score, r.Modifications, r.RT, r.Charge,
				r.ExpMZ, r.CalcMZ, r.SpectraRef, Null, Null, Null, Null}
			cells = append(cells, optCells(r.Opt, doc.PSMOptColumns)...)
			lw.line(cells...)
		}
	}
	return lw.err
}

func writeMeta(lw *lineWriter, md *MetaData) {
	mtd := func(key, value string) {
		lw.line(`MTD`, key, value)
	}
	mtd(`mzTab-version`, md.Version)
	mtd(`mzTab-mode`, md.Mode)
	mtd(`mzTab-type`, md.Type)
	mtd(`mzTab-ID`, md.ID)
	mtd(`description`, md.Description)
	for i, p := range md.MSRuns {
		mtd(fmt.Sprintf("ms_run[%d]-location", i+1), p)
	}
	for i, p := range md.SearchEngines {
		mtd(fmt.Sprintf("software[%d]", i+1), p.String())
	}
	for i, p := range md.PSMScores {
		mtd(fmt.Sprintf("psm_search_engine_score[%d]", i+1), p.String())
	}
	for i, p := range md.PeptideScores {
		mtd(fmt.Sprintf("peptide_search_engine_score[%d]", i+1), p.String())
	}
	for i, p := range md.FixedMods {
		mtd(fmt.Sprintf("fixed_mod[%d]", i+1), p.String())
	}
	for i, p := range md.VariableMods {
		mtd(fmt.Sprintf("variable_mod[%d]", i+1), p.String())
	}
	for i, d := range md.StudyVariables {
		mtd(fmt.Sprintf("study_variable[%d]-description", i+1), d)
	}
	for i, p := range md.Custom {
		mtd(fmt.Sprintf("custom[%d]", i+1), p.String())
	}
}

func optCells(opt map[string]string, columns []string) []string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		v, ok := opt[c]
		if !ok {
			v = Null
		}
		cells[i] = v
	}
	return cells
}
