package hcl

import (
	"fmt"
	"time"

	"github.com/vk/grainstore/internal/config"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translateStore converts the HCL-specific store schema into the agnostic model.
func translateStore(s *storeBlock) (*config.Store, error) {
	out := &config.Store{
		CacheDir:            s.CacheDir,
		EngineVersion:       s.EngineVersion,
		DefaultStyleVersion: s.DefaultStyleVersion,
		SRID:                s.SRID,
		TileFormat:          s.TileFormat,
	}

	if s.HTTPTimeout != "" {
		d, err := time.ParseDuration(s.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid http_timeout %q: %w", s.HTTPTimeout, err)
		}
		out.HTTPTimeout = d
	}

	var err error
	if out.Datasource, err = objectAttr("datasource", s.Datasource); err != nil {
		return nil, err
	}
	if out.Environment, err = objectAttr("environment", s.Environment); err != nil {
		return nil, err
	}
	if out.Map, err = stringMapAttr("map", s.Map); err != nil {
		return nil, err
	}
	return out, nil
}

// translateRequest converts the HCL-specific request schema into the agnostic model.
func translateRequest(r *requestBlock, source string) (*config.Request, error) {
	out := &config.Request{
		Name:               r.Name,
		Source:             source,
		DatabaseName:       r.DBName,
		Style:              dynamic(r.Style),
		StyleVersion:       dynamic(r.StyleVersion),
		Interactivity:      dynamic(r.Interactivity),
		InteractivityLayer: dynamic(r.Layer),
		Tile:               r.Tile,
	}

	for i, q := range r.Queries {
		params, err := objectAttr(fmt.Sprintf("query[%d].params", i), q.Params)
		if err != nil {
			return nil, err
		}
		extend, err := objectAttr(fmt.Sprintf("query[%d].extend", i), q.Extend)
		if err != nil {
			return nil, err
		}
		out.Queries = append(out.Queries, mapdef.Query{
			EngineHome: q.EngineHome,
			Layer:      q.Layer,
			Filter:     q.Filter,
			Params:     params,
			Extend:     extend,
		})
	}

	extra, err := extraDatasource(r.ExtraDatasource)
	if err != nil {
		return nil, err
	}
	out.ExtraDatasource = extra

	if v := dynamic(r.Set); !v.IsNull() {
		ty := v.Type()
		if !ty.IsObjectType() && !ty.IsMapType() {
			return nil, fmt.Errorf("set: expected object, got %s", ty.FriendlyName())
		}
		out.Set = v.AsValueMap()
	}
	return out, nil
}

// dynamic maps an absent attribute to a typed null.
func dynamic(v cty.Value) cty.Value {
	if v.IsNull() {
		return mapdef.Absent
	}
	return v
}

func objectAttr(name string, v cty.Value) (map[string]any, error) {
	m, err := mapdef.NativeMap(dynamic(v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

func stringMapAttr(name string, v cty.Value) (map[string]string, error) {
	v = dynamic(v)
	if v.IsNull() {
		return nil, nil
	}
	conv, err := convert.Convert(v, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("%s: expected an object of strings: %w", name, err)
	}
	out := make(map[string]string)
	for k, ev := range conv.AsValueMap() {
		if !ev.IsNull() {
			out[k] = ev.AsString()
		}
	}
	return out, nil
}

// extraDatasource accepts a list of objects, or a single object that applies
// to every layer.
func extraDatasource(v cty.Value) ([]map[string]any, error) {
	v = dynamic(v)
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if ty.IsObjectType() || ty.IsMapType() {
		m, err := objectAttr("extra_datasource", v)
		if err != nil {
			return nil, err
		}
		return []map[string]any{m}, nil
	}
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("extra_datasource: expected a list of objects, got %s", ty.FriendlyName())
	}

	var out []map[string]any
	for i, ev := range v.AsValueSlice() {
		m, err := objectAttr(fmt.Sprintf("extra_datasource[%d]", i), ev)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
