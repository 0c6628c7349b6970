package mapdef

import (
	"fmt"
	"strconv"

	"github.com/zclconf/go-cty/cty"
)

const (
	// DefaultFormat is the output format used when nothing overrides it.
	DefaultFormat = "png"
	// DefaultSRID is the spatial reference id used when none is configured.
	DefaultSRID = 4326
	// ScalarStyleID is the id of the single stylesheet compiled from a scalar style.
	ScalarStyleID = "style.mss"

	srsPrefix = "+init=epsg:"
)

// Query describes the datasource of one layer. EngineHome, Layer and Filter
// are the core fields copied into every layer datasource.
type Query struct {
	EngineHome string
	// Layer names the source layer inside the engine.
	Layer  string
	Filter string
	// Params holds engine-specific datasource parameters.
	Params map[string]any
	// Extend holds caller extension fields merged over Params.
	Extend map[string]any
}

// Request is a map styling request as supplied by the caller.
type Request struct {
	DatabaseName string
	Queries      []Query

	// Style is a string, or a list of strings aligned with Queries.
	Style cty.Value
	// StyleVersion is null, a string, or a list of strings aligned with Queries.
	StyleVersion cty.Value
	// Interactivity is null, a comma separated field list, or a list of them.
	Interactivity cty.Value
	// InteractivityLayer selects the layer interactivity is attached to.
	InteractivityLayer cty.Value

	ExtraDatasourceOptions []map[string]any

	// Tile optionally scopes the map to one "z/x/y" tile.
	Tile string
}

// Plan is a validated Request with every per-layer field aligned to Queries.
type Plan struct {
	DatabaseName string
	Queries      []Query

	Styles      []string
	StylesArray bool
	// Versions holds the per-layer source style version; empty means default.
	Versions []string
	// Interactivity holds the per-layer field list; empty means none.
	Interactivity      []string
	InteractivityLayer int
	Extra              []map[string]any
	Tile               *TileScope
}

// Settings are the store and builder level knobs that shape compilation.
type Settings struct {
	SRID               int
	Format             string
	MapDefaults        map[string]string
	DatasourceDefaults map[string]any
}

// MapDefinition is the compiled, engine-agnostic map document.
type MapDefinition struct {
	SRS           string            `json:"srs"`
	Format        string            `json:"format"`
	Properties    map[string]string `json:"properties,omitempty"`
	Layers        []Layer           `json:"layers"`
	Stylesheets   []Stylesheet      `json:"stylesheets"`
	Interactivity *Interactivity    `json:"interactivity,omitempty"`
	Tile          *TileScope        `json:"tile,omitempty"`
}

// Layer is one datasource of the map.
type Layer struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	SRS        string         `json:"srs"`
	Datasource map[string]any `json:"datasource"`
}

// Stylesheet is one style fragment, already rewritten for the target engine.
type Stylesheet struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// Interactivity names the fields exposed for hit-testing on one layer.
type Interactivity struct {
	Layer  string   `json:"layer"`
	Fields []string `json:"fields"`
}

// LayerID returns the canonical id of the layer at index i.
func LayerID(i int) string {
	return "layer" + strconv.Itoa(i)
}

// StyleID returns the id of the array-derived stylesheet at index i.
func StyleID(i int) string {
	return "style" + strconv.Itoa(i)
}

// SRS renders a spatial reference id in the form the engine expects.
func SRS(srid int) string {
	return fmt.Sprintf("%s%d", srsPrefix, srid)
}

// Clone returns a deep copy of the definition.
func (d *MapDefinition) Clone() *MapDefinition {
	if d == nil {
		return nil
	}
	out := &MapDefinition{
		SRS:        d.SRS,
		Format:     d.Format,
		Properties: cloneStrings(d.Properties),
	}
	if d.Layers != nil {
		out.Layers = make([]Layer, len(d.Layers))
		for i, l := range d.Layers {
			out.Layers[i] = Layer{ID: l.ID, Name: l.Name, SRS: l.SRS, Datasource: cloneMap(l.Datasource)}
		}
	}
	if d.Stylesheets != nil {
		out.Stylesheets = append([]Stylesheet(nil), d.Stylesheets...)
	}
	if d.Tile != nil {
		t := *d.Tile
		out.Tile = &t
	}
	if d.Interactivity != nil {
		out.Interactivity = &Interactivity{
			Layer:  d.Interactivity.Layer,
			Fields: append([]string(nil), d.Interactivity.Fields...),
		}
	}
	return out
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	mergeInto(out, m)
	return out
}

// mergeInto copies src over dst, deep-copying nested maps and slices so the
// compiled document never aliases caller data.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
