package openmsxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/524D/mzqc/internal/msdata"
)

type xmlConsensusMap struct {
	XMLName          xml.Name                   `xml:"consensusXML"`
	Version          string                     `xml:"version,attr"`
	ID               string                     `xml:"id,attr,omitempty"`
	ExperimentType   string                     `xml:"experiment_type,attr,omitempty"`
	Runs             []xmlIdentificationRun     `xml:"IdentificationRun,omitempty"`
	UnassignedPepIDs []xmlPeptideIdentification `xml:"UnassignedPeptideIdentification,omitempty"`
	MapList          xmlMapList                 `xml:"mapList"`
	ElementList      xmlConsensusElementList    `xml:"consensusElementList"`
	UserParams       []xmlUserParam             `xml:"UserParam,omitempty"`
}

type xmlMapList struct {
	Count int      `xml:"count,attr"`
	Maps  []xmlMap `xml:"map"`
}

type xmlMap struct {
	ID         int            `xml:"id,attr"`
	Name       string         `xml:"name,attr"`
	UniqueID   string         `xml:"unique_id,attr,omitempty"`
	Label      string         `xml:"label,attr"`
	Size       int            `xml:"size,attr"`
	UserParams []xmlUserParam `xml:"UserParam,omitempty"`
}

type xmlConsensusElementList struct {
	Elements []xmlConsensusElement `xml:"consensusElement"`
}

type xmlCentroid struct {
	RT        float64 `xml:"rt,attr"`
	MZ        float64 `xml:"mz,attr"`
	Intensity float64 `xml:"it,attr"`
}

type xmlElement struct {
	Map       int     `xml:"map,attr"`
	ID        string  `xml:"id,attr"`
	RT        float64 `xml:"rt,attr"`
	MZ        float64 `xml:"mz,attr"`
	Intensity float64 `xml:"it,attr"`
	Charge    int     `xml:"charge,attr"`
}

type xmlConsensusElement struct {
	ID         string                     `xml:"id,attr"`
	Quality    float64                    `xml:"quality,attr"`
	Charge     int                        `xml:"charge,attr"`
	Centroid   xmlCentroid                `xml:"centroid"`
	Grouped    []xmlElement               `xml:"groupedElementList>element"`
	PepIDs     []xmlPeptideIdentification `xml:"PeptideIdentification,omitempty"`
	UserParams []xmlUserParam             `xml:"UserParam,omitempty"`
}

const consensusXMLVersion = `1.7`

// LoadConsensusXML reads a consensusXML file
func LoadConsensusXML(path string) (*msdata.ConsensusMap, error) {
	var x xmlConsensusMap
	if err := decodeFile(path, &x, `consensusXML`); err != nil {
		return nil, err
	}
	cm, err := x.consensusMap()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cm, nil
}

// ReadConsensusXML reads consensusXML from an io.Reader
func ReadConsensusXML(r io.Reader) (*msdata.ConsensusMap, error) {
	var x xmlConsensusMap
	if err := decode(r, &x, `consensusXML`); err != nil {
		return nil, err
	}
	return x.consensusMap()
}

func (x *xmlConsensusMap) consensusMap() (*msdata.ConsensusMap, error) {
	var ir idReader
	var err error
	cm := msdata.ConsensusMap{
		ID:             x.ID,
		ExperimentType: x.ExperimentType,
	}
	if cm.ProteinIdentifications, err = ir.readRuns(x.Runs); err != nil {
		return nil, err
	}
	if cm.UnassignedPeptideIdentifications, err = ir.readPeptideIDs(x.UnassignedPepIDs); err != nil {
		return nil, err
	}
	if cm.Meta, err = decodeMeta(x.UserParams); err != nil {
		return nil, err
	}
	mapIndex := make(map[int]int, len(x.MapList.Maps))
	for i, xm := range x.MapList.Maps {
		h := msdata.ColumnHeader{
			Filename: xm.Name,
			Label:    xm.Label,
			Size:     xm.Size,
		}
		if h.UniqueID, err = parseUniqueID(xm.UniqueID, ``); err != nil {
			return nil, err
		}
		if h.Meta, err = decodeMeta(xm.UserParams); err != nil {
			return nil, err
		}
		mapIndex[xm.ID] = i
		cm.ColumnHeaders = append(cm.ColumnHeaders, h)
	}
	cm.Features = make([]msdata.ConsensusFeature, 0, len(x.ElementList.Elements))
	for _, xe := range x.ElementList.Elements {
		f := msdata.ConsensusFeature{
			RT:        xe.Centroid.RT,
			MZ:        xe.Centroid.MZ,
			Intensity: xe.Centroid.Intensity,
			Charge:    xe.Charge,
			Quality:   xe.Quality,
		}
		if f.UniqueID, err = parseUniqueID(xe.ID, `e_`); err != nil {
			return nil, err
		}
		for _, el := range xe.Grouped {
			mi, ok := mapIndex[el.Map]
			if !ok {
				return nil, fmt.Errorf("%w: map %d", ErrUnknownReference, el.Map)
			}
			uid, err := parseUniqueID(el.ID, ``)
			if err != nil {
				return nil, err
			}
			f.Elements = append(f.Elements, msdata.FeatureHandle{
				MapIndex:  mi,
				UniqueID:  uid,
				RT:        el.RT,
				MZ:        el.MZ,
				Intensity: el.Intensity,
				Charge:    el.Charge,
			})
		}
		if f.PeptideIdentifications, err = ir.readPeptideIDs(xe.PepIDs); err != nil {
			return nil, err
		}
		if f.Meta, err = decodeMeta(xe.UserParams); err != nil {
			return nil, err
		}
		cm.Features = append(cm.Features, f)
	}
	return &cm, nil
}

// StoreConsensusXML writes a consensus map to a consensusXML file
func StoreConsensusXML(path string, cm *msdata.ConsensusMap) error {
	return encodeFile(path, newXMLConsensusMap(cm))
}

// WriteConsensusXML writes a consensus map as consensusXML to w
func WriteConsensusXML(w io.Writer, cm *msdata.ConsensusMap) error {
	return encode(w, newXMLConsensusMap(cm))
}

func newXMLConsensusMap(cm *msdata.ConsensusMap) *xmlConsensusMap {
	iw := newIDWriter(cm.ProteinIdentifications, func(fn func(*msdata.PeptideIdentification)) {
		for i := range cm.UnassignedPeptideIdentifications {
			fn(&cm.UnassignedPeptideIdentifications[i])
		}
		for i := range cm.Features {
			for j := range cm.Features[i].PeptideIdentifications {
				fn(&cm.Features[i].PeptideIdentifications[j])
			}
		}
	})
	x := xmlConsensusMap{
		Version:          consensusXMLVersion,
		ID:               cm.ID,
		ExperimentType:   cm.ExperimentType,
		Runs:             iw.writeRuns(),
		UnassignedPepIDs: iw.writePeptideIDs(cm.UnassignedPeptideIdentifications),
		MapList:          xmlMapList{Count: len(cm.ColumnHeaders)},
		UserParams:       encodeMeta(cm.Meta),
	}
	for i, h := range cm.ColumnHeaders {
		x.MapList.Maps = append(x.MapList.Maps, xmlMap{
			ID:         i,
			Name:       h.Filename,
			UniqueID:   strconv.FormatUint(h.UniqueID, 10),
			Label:      h.Label,
			Size:       h.Size,
			UserParams: encodeMeta(h.Meta),
		})
	}
	for _, f := range cm.Features {
		xe := xmlConsensusElement{
			ID:      "e_" + strconv.FormatUint(f.UniqueID, 10),
			Quality: f.Quality,
			Charge:  f.Charge,
			Centroid: xmlCentroid{
				RT:        f.RT,
				MZ:        f.MZ,
				Intensity: f.Intensity,
			},
			PepIDs:     iw.writePeptideIDs(f.PeptideIdentifications),
			UserParams: encodeMeta(f.Meta),
		}
		for _, el := range f.Elements {
			xe.Grouped = append(xe.Grouped, xmlElement{
				Map:       el.MapIndex,
				ID:        strconv.FormatUint(el.UniqueID, 10),
				RT:        el.RT,
				MZ:        el.MZ,
				Intensity: el.Intensity,
				Charge:    el.Charge,
			})
		}
		x.ElementList.Elements = append(x.ElementList.Elements, xe)
	}
	return &x
}
