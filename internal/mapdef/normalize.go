package mapdef

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/vk/grainstore/internal/errs"
	"github.com/zclconf/go-cty/cty"
)

// Normalize validates a request and aligns every per-layer field with its
// queries. It is the only place the scalar-or-array shape of a request is
// inspected; everything downstream works on the returned Plan.
func Normalize(req *Request) (*Plan, error) {
	if req == nil {
		return nil, errs.Validation(errs.MissingRequiredField, errs.NoIndex, "Missing request")
	}
	if strings.TrimSpace(req.DatabaseName) == "" {
		return nil, errs.Validation(errs.MissingRequiredField, errs.NoIndex, "Missing dbname property")
	}
	if len(req.Queries) == 0 {
		return nil, errs.Validation(errs.MissingRequiredField, errs.NoIndex, "Missing queries property")
	}
	n := len(req.Queries)

	plan := &Plan{
		DatabaseName: req.DatabaseName,
		Queries:      make([]Query, n),
	}
	for i, q := range req.Queries {
		plan.Queries[i] = Query{EngineHome: q.EngineHome, Layer: q.Layer, Filter: q.Filter, Params: cloneMap(q.Params), Extend: cloneMap(q.Extend)}
	}

	var err error
	if plan.Tile, err = ParseTile(req.Tile); err != nil {
		return nil, err
	}
	if plan.InteractivityLayer, err = normalizeLayerIndex(req.InteractivityLayer); err != nil {
		return nil, err
	}
	if plan.Styles, plan.StylesArray, err = normalizeStyles(req.Style, n); err != nil {
		return nil, err
	}
	if plan.Versions, err = normalizeVersions(req.StyleVersion, n); err != nil {
		return nil, err
	}
	if plan.Interactivity, err = normalizeInteractivity(req.Interactivity, n); err != nil {
		return nil, err
	}

	switch len(req.ExtraDatasourceOptions) {
	case 0:
	case 1:
		plan.Extra = make([]map[string]any, n)
		for i := range plan.Extra {
			plan.Extra[i] = cloneMap(req.ExtraDatasourceOptions[0])
		}
	case n:
		plan.Extra = make([]map[string]any, n)
		for i, opts := range req.ExtraDatasourceOptions {
			plan.Extra[i] = cloneMap(opts)
		}
	default:
		return nil, misaligned("extra_datasource", len(req.ExtraDatasourceOptions), n)
	}

	return plan, nil
}

func misaligned(field string, got, want int) error {
	return errs.Validation(errs.MisalignedField, errs.NoIndex,
		"%s has %d entries but the request has %d queries", field, got, want)
}

// broadcast aligns vals with n layers.
func broadcast(field string, vals []cty.Value, n int) ([]cty.Value, error) {
	switch len(vals) {
	case n:
		return vals, nil
	case 1:
		out := make([]cty.Value, n)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	default:
		return nil, misaligned(field, len(vals), n)
	}
}

func normalizeLayerIndex(v cty.Value) (int, error) {
	if isAbsent(v) {
		return 0, nil
	}
	invalid := func(shown string) error {
		return errs.Validation(errs.InvalidLayerIndex, errs.NoIndex, "Invalid (non-integer) layer value type: %s", shown)
	}
	if !v.IsKnown() {
		return 0, invalid("unknown")
	}
	switch v.Type() {
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInf() || !bf.IsInt() {
			return 0, invalid(bf.Text('g', -1))
		}
		i, acc := bf.Int64()
		if acc != big.Exact || i < 0 || i > int64(^uint32(0)>>1) {
			return 0, errs.Validation(errs.InvalidLayerIndex, errs.NoIndex, "Invalid layer index %s", bf.Text('g', -1))
		}
		return int(i), nil
	case cty.String:
		s := strings.TrimSpace(v.AsString())
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, invalid(v.AsString())
		}
		if i < 0 {
			return 0, errs.Validation(errs.InvalidLayerIndex, errs.NoIndex, "Invalid layer index %d", i)
		}
		return i, nil
	default:
		return 0, invalid(kindName(v))
	}
}

func normalizeStyles(v cty.Value, n int) ([]string, bool, error) {
	if isAbsent(v) {
		return nil, false, nil
	}
	if !v.IsWhollyKnown() {
		return nil, false, errs.Validation(errs.InvalidStyleValue, errs.NoIndex, "style: value is not known")
	}
	vals, array := elements(v)
	if array && len(vals) == 0 {
		return nil, true, nil
	}
	vals, err := broadcast("style", vals, n)
	if err != nil {
		return nil, false, err
	}
	out := make([]string, n)
	for i, s := range vals {
		switch {
		case s.IsNull():
		case s.Type() == cty.String:
			out[i] = s.AsString()
		default:
			return nil, false, errs.Validation(errs.InvalidStyleValue, i, "style%d: expected string, got %s", i, kindName(s))
		}
	}
	return out, array, nil
}

func normalizeVersions(v cty.Value, n int) ([]string, error) {
	out := make([]string, n)
	if isAbsent(v) {
		return out, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errs.Validation(errs.InvalidStyleValue, errs.NoIndex, "style_version: value is not known")
	}
	vals, _ := elements(v)
	vals, err := broadcast("style_version", vals, n)
	if err != nil {
		return nil, err
	}
	for i, s := range vals {
		switch {
		case s.IsNull():
		case s.Type() == cty.String:
			out[i] = strings.TrimSpace(s.AsString())
		default:
			return nil, errs.Validation(errs.InvalidStyleValue, i, "style_version%d: expected string, got %s", i, kindName(s))
		}
	}
	return out, nil
}

func normalizeInteractivity(v cty.Value, n int) ([]string, error) {
	out := make([]string, n)
	if isAbsent(v) {
		return out, nil
	}
	if !v.IsWhollyKnown() {
		return nil, errs.Validation(errs.InvalidInteractivityValue, errs.NoIndex, "interactivity: value is not known")
	}
	vals, array := elements(v)
	if array && len(vals) == 0 {
		return out, nil
	}
	vals, err := broadcast("interactivity", vals, n)
	if err != nil {
		return nil, err
	}
	for i, e := range vals {
		if isFalsy(e) {
			continue
		}
		if e.Type() != cty.String {
			return nil, errs.Validation(errs.InvalidInteractivityValue, i,
				"Invalid interactivity value type for layer %d: %s", i, kindName(e))
		}
		out[i] = e.AsString()
	}
	return out, nil
}
