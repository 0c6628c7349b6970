// Package grainstore compiles map styling requests into rendering-engine map
// documents. A Store holds the settings shared by a family of builders; each
// Builder compiles one request and renders it on demand.
//
//	st := grainstore.New(grainstore.Options{CacheDir: "/var/cache/grainstore"})
//	b, err := st.CreateBuilder(ctx, &grainstore.Request{
//		DatabaseName: "gis",
//		Queries:      []grainstore.Query{{Layer: "roads"}},
//		Style:        grainstore.String("#layer { line-width: 1; }"),
//	}, grainstore.Options{})
//	...
//	xml, err := b.Render(ctx)
package grainstore

import (
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/store"
	"github.com/zclconf/go-cty/cty"
)

// The public API is made of aliases of the internal types, so values flow
// between this package and the internal ones without conversion.
type (
	// Store creates builders that share one set of options and one resource
	// cache.
	Store = store.Store
	// Builder compiles one request and renders it on demand.
	Builder = store.Builder
	// Options configure a Store, or override it for a single builder.
	Options = store.Options
	// PurgeReport summarizes one cache purge.
	PurgeReport = store.PurgeReport
	// Request is the caller-supplied description of a map.
	Request = mapdef.Request
	// Query describes the datasource of one layer.
	Query = mapdef.Query
	// MapDefinition is the compiled, engine-neutral map.
	MapDefinition = mapdef.MapDefinition
	// TileScope limits a map to one tile of the web mercator pyramid.
	TileScope = mapdef.TileScope
)

// Errors returned by builders. Use KindOf or errors.As to tell them apart.
type (
	// ValidationError reports a malformed request.
	ValidationError = errs.ValidationError
	// TransformError reports a style that could not be rewritten to the
	// target engine version.
	TransformError = errs.TransformError
	// ResolutionError reports an external resource that could not be
	// localized.
	ResolutionError = errs.ResolutionError
	// RenderError reports problems found while producing the map document.
	RenderError = errs.RenderError
	// ErrorKind names the pipeline stage that failed.
	ErrorKind = errs.Kind
	// ErrorCode identifies a validation failure.
	ErrorCode = errs.Code
)

// Absent marks an optional request field as not given.
var Absent = mapdef.Absent

// New returns a Store with opts applied over the defaults.
func New(opts Options) *Store {
	return store.New(opts)
}

// String is a scalar request value, broadcast to every layer.
func String(s string) cty.Value {
	return mapdef.String(s)
}

// Strings is an array request value with one entry per layer.
func Strings(ss ...string) cty.Value {
	return mapdef.Strings(ss...)
}

// Index is an interactivity layer index.
func Index(i int) cty.Value {
	return mapdef.Index(i)
}

// KindOf reports which pipeline stage produced err.
func KindOf(err error) ErrorKind {
	return errs.KindOf(err)
}
