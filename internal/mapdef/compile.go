package mapdef

import (
	"strconv"
	"strings"

	"github.com/vk/grainstore/internal/errs"
)

// SelectorRenamer rewrites the leading selector of a style fragment to the
// given layer id.
type SelectorRenamer func(style, layer string) string

// BuildBase compiles the style-free skeleton of a map definition: one layer
// per query, in query order, plus the interactivity block.
//
// Datasource parameters are merged with increasing precedence: datasource
// defaults, the core fields (engine_home, layer, filter, dbname, Params),
// the query's Extend fields, and finally the plan's extra options for that
// layer. Layers take their SRS from the default datasource srid when one is
// set, and from the map SRID otherwise.
func BuildBase(plan *Plan, s Settings) (*MapDefinition, error) {
	if plan == nil || len(plan.Queries) == 0 {
		return nil, errs.Validation(errs.MissingRequiredField, errs.NoIndex, "Missing queries property")
	}

	srid := s.SRID
	if srid == 0 {
		srid = DefaultSRID
	}
	format := s.Format
	if format == "" {
		format = DefaultFormat
	}

	layerSRS := SRS(srid)
	if v, ok := sridOf(s.DatasourceDefaults["srid"]); ok {
		layerSRS = SRS(v)
	}

	def := &MapDefinition{
		SRS:        SRS(srid),
		Format:     format,
		Properties: cloneStrings(s.MapDefaults),
		Layers:     make([]Layer, 0, len(plan.Queries)),
	}
	if plan.Tile != nil {
		t := *plan.Tile
		def.Tile = &t
	}

	for i, q := range plan.Queries {
		ds := make(map[string]any, len(s.DatasourceDefaults)+len(q.Params)+2)
		mergeInto(ds, s.DatasourceDefaults)
		for key, val := range map[string]string{
			"engine_home": q.EngineHome,
			"layer":       q.Layer,
			"filter":      q.Filter,
		} {
			if val != "" {
				ds[key] = val
			}
		}
		ds["dbname"] = plan.DatabaseName
		mergeInto(ds, q.Params)
		mergeInto(ds, q.Extend)
		if i < len(plan.Extra) {
			mergeInto(ds, plan.Extra[i])
		}

		id := LayerID(i)
		def.Layers = append(def.Layers, Layer{
			ID:         id,
			Name:       id,
			SRS:        layerSRS,
			Datasource: ds,
		})
	}

	// An index past the last layer, or a layer without fields, leaves the
	// map without interactivity.
	idx := plan.InteractivityLayer
	if idx < 0 || idx >= len(def.Layers) || idx >= len(plan.Interactivity) || plan.Interactivity[idx] == "" {
		return def, nil
	}
	fields, err := splitFields(idx, plan.Interactivity[idx])
	if err != nil {
		return nil, err
	}
	def.Interactivity = &Interactivity{Layer: def.Layers[idx].ID, Fields: fields}
	return def, nil
}

// sridOf reads a spatial reference id from a datasource parameter value.
func sridOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n > 0
	case int64:
		return int(n), n > 0
	case float64:
		return int(n), n > 0 && n == float64(int(n))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil && i > 0
	}
	return 0, false
}

func splitFields(idx int, value string) ([]string, error) {
	parts := strings.Split(value, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		f := strings.TrimSpace(p)
		if f == "" {
			return nil, errs.Validation(errs.InvalidInteractivityFormat, idx,
				"Invalid interactivity format for layer %d: %q", idx, value)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// AttachStylesheets returns a copy of def carrying the given, already
// version-rewritten, style fragments.
//
// When the request supplied its styles as an array, fragment i belongs to
// layer i and its leading selector is renamed to that layer's id. A scalar
// style becomes a single stylesheet stored verbatim.
func AttachStylesheets(def *MapDefinition, fragments []string, array bool, rename SelectorRenamer) (*MapDefinition, error) {
	if def == nil {
		return nil, errs.Validation(errs.MissingRequiredField, errs.NoIndex, "Missing map definition")
	}
	if len(fragments) == 0 {
		return nil, errs.Validation(errs.EmptyStyleFragment, 0, "style0: CartoCSS is empty")
	}

	out := def.Clone()
	if !array {
		out.Stylesheets = []Stylesheet{{ID: ScalarStyleID, Data: fragments[0]}}
		return out, nil
	}

	if len(fragments) != len(out.Layers) {
		return nil, misaligned("style", len(fragments), len(out.Layers))
	}
	out.Stylesheets = make([]Stylesheet, len(fragments))
	for i, data := range fragments {
		if rename != nil {
			data = rename(data, out.Layers[i].ID)
		}
		out.Stylesheets[i] = Stylesheet{ID: StyleID(i), Data: data}
	}
	return out, nil
}

// ValidateStyles fails on the first blank fragment.
func ValidateStyles(styles []string) error {
	if len(styles) == 0 {
		return errs.Validation(errs.EmptyStyleFragment, 0, "style0: CartoCSS is empty")
	}
	for i, s := range styles {
		if strings.TrimSpace(s) == "" {
			return errs.Validation(errs.EmptyStyleFragment, i, "style%d: CartoCSS is empty", i)
		}
	}
	return nil
}
