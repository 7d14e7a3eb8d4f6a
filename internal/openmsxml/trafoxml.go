package openmsxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

type xmlTrafo struct {
	XMLName        xml.Name          `xml:"TrafoXML"`
	Version        string            `xml:"version,attr"`
	Transformation xmlTransformation `xml:"Transformation"`
}

type xmlTransformation struct {
	Name   string     `xml:"name,attr"`
	Params []xmlParam `xml:"Param"`
	Pairs  []xmlPair  `xml:"Pairs>Pair"`
}

type xmlParam struct {
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlPair struct {
	From float64 `xml:"from,attr"`
	To   float64 `xml:"to,attr"`
}

// LoadTrafoXML reads a trafoXML file and fits the transformation
func LoadTrafoXML(path string) (*msdata.Transformation, error) {
	f, err := ReadTrafoFile(path)
	if err != nil {
		return nil, err
	}
	if err := f.Fit(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ReadTrafoFile reads a trafoXML file without fitting the model
func ReadTrafoFile(path string) (*msdata.Transformation, error) {
	var x xmlTrafo
	if err := decodeFile(path, &x, `TrafoXML`); err != nil {
		return nil, err
	}
	t, err := x.transformation()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadTrafoXML reads trafoXML from an io.Reader without fitting the model
func ReadTrafoXML(r io.Reader) (*msdata.Transformation, error) {
	var x xmlTrafo
	if err := decode(r, &x, `TrafoXML`); err != nil {
		return nil, err
	}
	return x.transformation()
}

func (x *xmlTrafo) transformation() (*msdata.Transformation, error) {
	t := msdata.Transformation{
		Model:  x.Transformation.Name,
		Params: make(map[string]float64),
		Pairs:  make([]msdata.RTPair, 0, len(x.Transformation.Pairs)),
	}
	for _, p := range x.Transformation.Params {
		switch p.Type {
		case `float`, `double`, `int`:
			v, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
			if err != nil {
				return nil, fmt.Errorf("Param %s: %w", p.Name, err)
			}
			t.Params[p.Name] = v
		}
	}
	for _, p := range x.Transformation.Pairs {
		t.Pairs = append(t.Pairs, msdata.RTPair{From: p.From, To: p.To})
	}
	return &t, nil
}
