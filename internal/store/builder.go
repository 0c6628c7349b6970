package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/render"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Names of the properties that may be changed after a builder is created.
const (
	PropertyFormat     = "format"
	PropertyMap        = "map"
	PropertyDatasource = "datasource"
)

// properties are the mutable part of a builder.
type properties struct {
	format     string
	mapDefault map[string]string
	datasource map[string]any
}

// Builder compiles and renders one validated request. Render may be called
// concurrently with itself and with the setters; a render uses the
// properties as they were when it started.
type Builder struct {
	plan     *mapdef.Plan
	srid     int
	pipeline *render.Pipeline

	mu    sync.Mutex
	props properties
}

// SetFormat sets the output format used by subsequent renders.
func (b *Builder) SetFormat(format string) {
	b.mu.Lock()
	b.props.format = format
	b.mu.Unlock()
}

// SetMapDefaults replaces the map-level properties.
func (b *Builder) SetMapDefaults(m map[string]string) {
	m = cloneStrings(m)
	b.mu.Lock()
	b.props.mapDefault = m
	b.mu.Unlock()
}

// SetDatasourceDefaults replaces the datasource parameters applied under
// every layer's own parameters.
func (b *Builder) SetDatasourceDefaults(m map[string]any) {
	m = cloneAny(m)
	b.mu.Lock()
	b.props.datasource = m
	b.mu.Unlock()
}

// Set changes a property by name. Only format, map and datasource may be
// set; any other name fails with errs.UnknownProperty.
func (b *Builder) Set(name string, value cty.Value) error {
	switch name {
	case PropertyFormat:
		if value.IsNull() || !value.IsKnown() || value.Type() != cty.String {
			return invalidProperty(name, "expected string", value)
		}
		b.SetFormat(value.AsString())
	case PropertyMap:
		if !isObject(value) {
			return invalidProperty(name, "expected object", value)
		}
		conv, err := convert.Convert(value, cty.Map(cty.String))
		if err != nil || !conv.IsWhollyKnown() {
			return invalidProperty(name, "expected object of strings", value)
		}
		m := make(map[string]string, conv.LengthInt())
		for k, v := range conv.AsValueMap() {
			if v.IsNull() {
				continue
			}
			m[k] = v.AsString()
		}
		b.SetMapDefaults(m)
	case PropertyDatasource:
		if !isObject(value) {
			return invalidProperty(name, "expected object", value)
		}
		m, err := mapdef.NativeMap(value)
		if err != nil {
			return errs.Validation(errs.InvalidPropertyValue, errs.NoIndex, "Invalid value for property %s: %v", name, err)
		}
		b.SetDatasourceDefaults(m)
	default:
		return errs.Validation(errs.UnknownProperty, errs.NoIndex,
			"Unknown property %q: settable properties are %s", name, strings.Join(Properties(), ", "))
	}
	return nil
}

// Properties lists the names accepted by Set.
func Properties() []string {
	names := []string{PropertyDatasource, PropertyFormat, PropertyMap}
	sort.Strings(names)
	return names
}

// Render compiles the request with the current properties and returns the
// engine output.
func (b *Builder) Render(ctx context.Context) (string, error) {
	logger := ctxlog.FromContext(ctx)
	job := b.job()
	logger.Debug("Rendering map.", "dbname", b.plan.DatabaseName, "format", job.Settings.Format)
	return b.pipeline.Render(ctx, job)
}

// Definition returns the compiled, unresolved map definition.
func (b *Builder) Definition(ctx context.Context) (*mapdef.MapDefinition, error) {
	return b.pipeline.Compile(ctx, b.job())
}

func (b *Builder) job() render.Job {
	b.mu.Lock()
	p := b.props
	b.mu.Unlock()

	return render.Job{
		Plan: b.plan,
		Settings: mapdef.Settings{
			SRID:               b.srid,
			Format:             p.format,
			MapDefaults:        p.mapDefault,
			DatasourceDefaults: p.datasource,
		},
	}
}

func isObject(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}

func invalidProperty(name, want string, v cty.Value) error {
	got := "null"
	if !v.IsNull() {
		got = v.Type().FriendlyName()
	}
	return errs.Validation(errs.InvalidPropertyValue, errs.NoIndex,
		"Invalid value for property %s: %s, got %s", name, want, got)
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

func cloneAny(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
