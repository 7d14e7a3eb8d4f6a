package mzml

import (
	"encoding/xml"
	"errors"
)

// MzML wraps the contents of the mzML file
type MzML struct {
	content  mzMLContent
	index2id []string
}

// The part of the mzML content that is needed to compute QC metrics.
// Everything else is skipped by the decoder.
type mzMLContent struct {
	XMLName                     xml.Name                     `xml:"http://psi.hupo.org/ms/mzml mzML"`
	ReferenceableParamGroupList *referenceableParamGroupList `xml:"referenceableParamGroupList"`
	Run                         run                          `xml:"run"`
}

type referenceableParamGroupList struct {
	Group []referenceableParamGroup `xml:"referenceableParamGroup"`
}

type referenceableParamGroup struct {
	ID    string    `xml:"id,attr"`
	CvPar []CVParam `xml:"cvParam"`
}

type referenceableParamGroupRef struct {
	Ref string `xml:"ref,attr"`
}

type run struct {
	ID                   string       `xml:"id,attr,omitempty"`
	DefaultSourceFileRef string       `xml:"defaultSourceFileRef,attr,omitempty"`
	SpectrumList         spectrumList `xml:"spectrumList,omitempty"`
}

type spectrumList struct {
	Count    int        `xml:"count,attr,omitempty"`
	Spectrum []spectrum `xml:"spectrum,omitempty"`
}

type spectrum struct {
	Index              int                          `xml:"index,attr"`
	ID                 string                       `xml:"id,attr"`
	DefaultArrayLength int64                        `xml:"defaultArrayLength,attr"`
	ParamGroupRef      []referenceableParamGroupRef `xml:"referenceableParamGroupRef,omitempty"`
	CvPar              []CVParam                    `xml:"cvParam,omitempty"`
	ScanList           scanList                     `xml:"scanList"`
	// A spectrum holds at most one precursorList
	PrecursorList       []precursorList     `xml:"precursorList,omitempty"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type binaryDataArrayList struct {
	Count           int               `xml:"count,attr,omitempty"`
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	EncodedLength int       `xml:"encodedLength,attr,omitempty"`
	ArrayLength   int       `xml:"arrayLength,attr,omitempty"`
	CvPar         []CVParam `xml:"cvParam,omitempty"`
	Binary        string    `xml:"binary"`
}

type scanList struct {
	Count int       `xml:"count,attr,omitempty"`
	Scan  []scan    `xml:"scan"`
	CvPar []CVParam `xml:"cvParam,omitempty"`
}

type scan struct {
	CvPar []CVParam `xml:"cvParam,omitempty"`
}

type precursorList struct {
	Count     int            `xml:"count,attr,omitempty"`
	Precursor []XMLprecursor `xml:"precursor"`
}

// XMLprecursor contains info for the correspondingly named tag in the mzML file
type XMLprecursor struct {
	SpectrumRef     string          `xml:"spectrumRef,attr,omitempty"`
	IsolationWindow isolationWindow `xml:"isolationWindow,omitempty"`
	SelectedIonList selectedIonList `xml:"selectedIonList"`
}

type isolationWindow struct {
	CvPar []CVParam `xml:"cvParam,omitempty"`
}

type selectedIonList struct {
	Count       int           `xml:"count,attr,omitempty"`
	SelectedIon []selectedIon `xml:"selectedIon"`
}

type selectedIon struct {
	CvPar []CVParam `xml:"cvParam,omitempty"`
}

// CVParam contains values and attributes of a mzML Controlled Vocabulary term
// (http://www.peptideatlas.org/tmp/mzML1.1.0.html)
type CVParam struct {
	Accession     string `xml:"accession,attr,omitempty"`
	Name          string `xml:"name,attr,omitempty"`
	Value         string `xml:"value,attr,omitempty"`
	UnitCvRef     string `xml:"unitCvRef,attr,omitempty"`
	UnitAccession string `xml:"unitAccession,attr,omitempty"`
	UnitName      string `xml:"unitName,attr,omitempty"`
}

var (
	// ErrInvalidScanIndex means an invalid scan index is supplied
	ErrInvalidScanIndex = errors.New("MzML: invalid scan index")
	// ErrUnsupportedCompression means the binary data uses MS-Numpress
	ErrUnsupportedCompression = errors.New("MzML: compression type not supported")
)
