package openmsxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

type xmlFeatureMap struct {
	XMLName          xml.Name                   `xml:"featureMap"`
	Version          string                     `xml:"version,attr"`
	ID               string                     `xml:"id,attr,omitempty"`
	Runs             []xmlIdentificationRun     `xml:"IdentificationRun,omitempty"`
	UnassignedPepIDs []xmlPeptideIdentification `xml:"UnassignedPeptideIdentification,omitempty"`
	UserParams       []xmlUserParam             `xml:"UserParam,omitempty"`
	FeatureList      xmlFeatureList             `xml:"featureList"`
}

type xmlFeatureList struct {
	Count    int          `xml:"count,attr"`
	Features []xmlFeature `xml:"feature"`
}

type xmlPosition struct {
	Dim   int     `xml:"dim,attr"`
	Value float64 `xml:",chardata"`
}

type xmlFeature struct {
	ID             string                     `xml:"id,attr"`
	Positions      []xmlPosition              `xml:"position"`
	Intensity      float64                    `xml:"intensity"`
	OverallQuality float64                    `xml:"overallquality"`
	Charge         int                        `xml:"charge"`
	PepIDs         []xmlPeptideIdentification `xml:"PeptideIdentification,omitempty"`
	UserParams     []xmlUserParam             `xml:"UserParam,omitempty"`
}

const featureXMLVersion = `1.9`

// parseUniqueID converts ids such as "f_123" into the numeric unique id
func parseUniqueID(id, prefix string) (uint64, error) {
	if id == `` {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(id, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %s: %w", id, err)
	}
	return v, nil
}

// LoadFeatureXML reads a featureXML file
func LoadFeatureXML(path string) (*msdata.FeatureMap, error) {
	var x xmlFeatureMap
	if err := decodeFile(path, &x, `featureMap`); err != nil {
		return nil, err
	}
	fm, err := x.featureMap()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fm, nil
}

// ReadFeatureXML reads featureXML from an io.Reader
func ReadFeatureXML(r io.Reader) (*msdata.FeatureMap, error) {
	var x xmlFeatureMap
	if err := decode(r, &x, `featureMap`); err != nil {
		return nil, err
	}
	return x.featureMap()
}

func (x *xmlFeatureMap) featureMap() (*msdata.FeatureMap, error) {
	var ir idReader
	var err error
	fm := msdata.FeatureMap{ID: x.ID}
	if fm.ProteinIdentifications, err = ir.readRuns(x.Runs); err != nil {
		return nil, err
	}
	if fm.UnassignedPeptideIdentifications, err = ir.readPeptideIDs(x.UnassignedPepIDs); err != nil {
		return nil, err
	}
	if fm.Meta, err = decodeMeta(x.UserParams); err != nil {
		return nil, err
	}
	fm.Features = make([]msdata.Feature, 0, len(x.FeatureList.Features))
	for _, xf := range x.FeatureList.Features {
		f := msdata.Feature{
			Intensity: xf.Intensity,
			Charge:    xf.Charge,
			Quality:   xf.OverallQuality,
		}
		if f.UniqueID, err = parseUniqueID(xf.ID, `f_`); err != nil {
			return nil, err
		}
		for _, p := range xf.Positions {
			switch p.Dim {
			case 0:
				f.RT = p.Value
			case 1:
				f.MZ = p.Value
			}
		}
		if f.PeptideIdentifications, err = ir.readPeptideIDs(xf.PepIDs); err != nil {
			return nil, err
		}
		if f.Meta, err = decodeMeta(xf.UserParams); err != nil {
			return nil, err
		}
		fm.Features = append(fm.Features, f)
	}
	return &fm, nil
}

// StoreFeatureXML writes a feature map to a featureXML file
func StoreFeatureXML(path string, fm *msdata.FeatureMap) error {
	return encodeFile(path, newXMLFeatureMap(fm))
}

// WriteFeatureXML writes a feature map as featureXML to w
func WriteFeatureXML(w io.Writer, fm *msdata.FeatureMap) error {
	return encode(w, newXMLFeatureMap(fm))
}

func newXMLFeatureMap(fm *msdata.FeatureMap) *xmlFeatureMap {
	iw := newIDWriter(fm.ProteinIdentifications, func(fn func(*msdata.PeptideIdentification)) {
		fm.ForEachIdentification(func(_ int, id *msdata.PeptideIdentification) error {
			fn(id)
			return nil
		})
	})
	x := xmlFeatureMap{
		Version:          featureXMLVersion,
		ID:               fm.ID,
		Runs:             iw.writeRuns(),
		UnassignedPepIDs: iw.writePeptideIDs(fm.UnassignedPeptideIdentifications),
		UserParams:       encodeMeta(fm.Meta),
		FeatureList: xmlFeatureList{
			Count:    len(fm.Features),
			Features: make([]xmlFeature, 0, len(fm.Features)),
		},
	}
	for _, f := range fm.Features {
		x.FeatureList.Features = append(x.FeatureList.Features, xmlFeature{
			ID: "f_" + strconv.FormatUint(f.UniqueID, 10),
			Positions: []xmlPosition{
				{Dim: 0, Value: f.RT},
				{Dim: 1, Value: f.MZ},
			},
			Intensity:      f.Intensity,
			OverallQuality: f.Quality,
			Charge:         f.Charge,
			PepIDs:         iw.writePeptideIDs(f.PeptideIdentifications),
			UserParams:     encodeMeta(f.Meta),
		})
	}
	return &x
}
