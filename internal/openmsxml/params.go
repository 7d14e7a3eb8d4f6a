package openmsxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/524D/mzqc/internal/msdata"
)

// xmlUserParam is the OpenMS representation of a single meta value
type xmlUserParam struct {
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// splitList parses an OpenMS list value such as "[a, b, c]"
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == `` {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func joinList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// decodeMeta converts user params into a MetaInfo
func decodeMeta(params []xmlUserParam) (msdata.MetaInfo, error) {
	var m msdata.MetaInfo
	for _, p := range params {
		switch p.Type {
		case `int`:
			v, err := strconv.Atoi(strings.TrimSpace(p.Value))
			if err != nil {
				return m, fmt.Errorf("UserParam %s: %w", p.Name, err)
			}
			m.Set(p.Name, v)
		case `float`:
			v, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
			if err != nil {
				return m, fmt.Errorf("UserParam %s: %w", p.Name, err)
			}
			m.Set(p.Name, v)
		case `intList`:
			items := splitList(p.Value)
			vs := make([]int, len(items))
			for i, item := range items {
				v, err := strconv.Atoi(item)
				if err != nil {
					return m, fmt.Errorf("UserParam %s: %w", p.Name, err)
				}
				vs[i] = v
			}
			m.Set(p.Name, vs)
		case `floatList`:
			items := splitList(p.Value)
			vs := make([]float64, len(items))
			for i, item := range items {
				v, err := strconv.ParseFloat(item, 64)
				if err != nil {
					return m, fmt.Errorf("UserParam %s: %w", p.Name, err)
				}
				vs[i] = v
			}
			m.Set(p.Name, vs)
		case `stringList`:
			items := splitList(p.Value)
			if items == nil {
				items = []string{}
			}
			m.Set(p.Name, items)
		default:
			m.Set(p.Name, p.Value)
		}
	}
	return m, nil
}

// encodeMeta converts a MetaInfo into user params, ordered by key
func encodeMeta(m msdata.MetaInfo) []xmlUserParam {
	var params []xmlUserParam
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		p := xmlUserParam{Name: k}
		switch t := v.(type) {
		case int:
			p.Type, p.Value = `int`, strconv.Itoa(t)
		case float64:
			p.Type, p.Value = `float`, formatFloat(t)
		case []int:
			items := make([]string, len(t))
			for i, x := range t {
				items[i] = strconv.Itoa(x)
			}
			p.Type, p.Value = `intList`, joinList(items)
		case []float64:
			items := make([]string, len(t))
			for i, x := range t {
				items[i] = formatFloat(x)
			}
			p.Type, p.Value = `floatList`, joinList(items)
		case []string:
			p.Type, p.Value = `stringList`, joinList(t)
		default:
			p.Type, p.Value = `string`, fmt.Sprint(t)
		}
		params = append(params, p)
	}
	return params
}
