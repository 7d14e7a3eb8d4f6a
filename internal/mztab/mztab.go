// Package mztab builds and writes mzTab 1.0 reports
package mztab

import (
	"math"
	"strconv"
	"strings"
)

// Version is the mzTab version written into the report
const Version = `1.0.0`

// Null is the mzTab representation of a missing value
const Null = `null`

// Parameter is a CV parameter written as "[label, accession, name, value]"
type Parameter struct {
	CVLabel   string
	Accession string
	Name      string
	Value     string
}

// String formats the parameter as an mzTab cell
func (p Parameter) String() string {
	return "[" + p.CVLabel + ", " + p.Accession + ", " + p.Name + ", " + p.Value + "]"
}

// MetaData is the MTD section of a report
type MetaData struct {
	Version        string
	Mode           string
	Type           string
	ID             string
	Description    string
	MSRuns         []string // ms_run[n]-location
	StudyVariables []string // study_variable[n]-description
	SearchEngines  []Parameter
	PSMScores      []Parameter // psm_search_engine_score[n]
	PeptideScores  []Parameter // peptide_search_engine_score[n]
	FixedMods      []Parameter
	VariableMods   []Parameter
	Custom         []Parameter
}

// PeptideRow is one PEP line. Optional columns are keyed by full
// column name.
type PeptideRow struct {
	Sequence      string
	Accession     string
	Unique        string
	Database      string
	DBVersion     string
	SearchEngine  string
	BestScore     string
	Modifications string
	RT            string
	Charge        string
	MZ            string
	Abundances    []string // per study variable
	Opt           map[string]string
}

// PSMRow is one PSM line
type PSMRow struct {
	Sequence      string
	PSMID         int
	Accession     string
	Unique        string
	Database      string
	DBVersion     string
	SearchEngine  string
	Score         string
	Modifications string
	RT            string
	Charge        string
	ExpMZ         string
	CalcMZ        string
	SpectraRef    string
	Opt           map[string]string
}

// Document is a complete mzTab report
type Document struct {
	Meta              MetaData
	Peptides          []PeptideRow
	PSMs              []PSMRow
	PeptideOptColumns []string
	PSMOptColumns     []string
}

// FormatDouble formats a number the way numbers appear in the report:
// rounded to 10 significant digits and printed without exponent
func FormatDouble(v float64) string {
	switch {
	case math.IsNaN(v):
		return `NaN`
	case math.IsInf(v, 1):
		return `Inf`
	case math.IsInf(v, -1):
		return `-Inf`
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 10, 64), 64)
	if err != nil {
		r = v
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// FormatList formats a list of numbers as "[a, b, c]"
func FormatList(vs []float64) string {
	items := make([]string, len(vs))
	for i, v := range vs {
		items[i] = FormatDouble(v)
	}
	return "[" + strings.Join(items, ", ") + "]"
}
