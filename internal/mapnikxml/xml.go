package mapnikxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/grainstore/internal/mapdef"
)

const doctype = "<!DOCTYPE Map[]>\n"

// attrNameRe is the subset of XML attribute names accepted for map
// properties: no namespaces, ASCII only.
var attrNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

// reservedAttrs are written by encode itself.
var reservedAttrs = map[string]bool{"srs": true, "minimum-version": true}

type xmlMap struct {
	XMLName        xml.Name        `xml:"Map"`
	SRS            string          `xml:"srs,attr"`
	MinimumVersion string          `xml:"minimum-version,attr"`
	Attrs          []xml.Attr      `xml:",any,attr"`
	Parameters     *xmlParameters  `xml:"Parameters"`
	Stylesheets    []xmlStylesheet `xml:"Stylesheet"`
	Layers         []xmlLayer      `xml:"Layer"`
}

type xmlParameters struct {
	Parameters []xmlParameter `xml:"Parameter"`
}

type xmlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",cdata"`
}

type xmlStylesheet struct {
	Name string `xml:"name,attr"`
	Data string `xml:",cdata"`
}

type xmlLayer struct {
	Name       string        `xml:"name,attr"`
	SRS        string        `xml:"srs,attr"`
	Datasource xmlParameters `xml:"Datasource"`
}

// encode serializes def. Map attributes and datasource parameters are
// emitted in key order so equal definitions produce identical bytes.
func encode(def *mapdef.MapDefinition, version string) (string, error) {
	m := xmlMap{
		SRS:            def.SRS,
		MinimumVersion: version,
	}
	for _, k := range sortedKeys(def.Properties) {
		if err := checkAttrName(k); err != nil {
			return "", err
		}
		m.Attrs = append(m.Attrs, xml.Attr{Name: xml.Name{Local: k}, Value: def.Properties[k]})
	}

	params := []xmlParameter{{Name: "format", Value: def.Format}}
	if t := def.Tile; t != nil {
		zoom := strconv.FormatUint(uint64(t.Z), 10)
		params = append(params,
			xmlParameter{Name: "bounds", Value: joinFloats(t.West, t.South, t.East, t.North)},
			xmlParameter{Name: "center", Value: joinFloats(t.Center[0], t.Center[1]) + "," + zoom},
			xmlParameter{Name: "minzoom", Value: zoom},
			xmlParameter{Name: "maxzoom", Value: zoom},
		)
	}
	if it := def.Interactivity; it != nil {
		params = append(params,
			xmlParameter{Name: "interactivity_layer", Value: it.Layer},
			xmlParameter{Name: "interactivity_fields", Value: strings.Join(it.Fields, ",")},
		)
	}
	m.Parameters = &xmlParameters{Parameters: params}

	for _, s := range def.Stylesheets {
		m.Stylesheets = append(m.Stylesheets, xmlStylesheet{Name: s.ID, Data: s.Data})
	}
	for _, l := range def.Layers {
		layer := xmlLayer{Name: l.Name, SRS: l.SRS}
		for _, k := range sortedKeys(l.Datasource) {
			layer.Datasource.Parameters = append(layer.Datasource.Parameters,
				xmlParameter{Name: k, Value: paramString(l.Datasource[k])})
		}
		m.Layers = append(m.Layers, layer)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(doctype)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("failed to encode map document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

func checkAttrName(name string) error {
	if reservedAttrs[name] {
		return fmt.Errorf("map property %q is reserved", name)
	}
	if !attrNameRe.MatchString(name) {
		return fmt.Errorf("map property %q is not a valid attribute name", name)
	}
	return nil
}

func paramString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = paramString(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}

func joinFloats(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
