package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/vk/grainstore/internal/render"
)

const (
	// DefaultTargetVersion is the engine version styles are rewritten to.
	DefaultTargetVersion = "2.3.0"
	// DefaultStyleVersion is assumed for styles that do not name a version.
	DefaultStyleVersion = "2.0.0"
	// DefaultHTTPTimeout bounds remote resource downloads.
	DefaultHTTPTimeout = 30 * time.Second
)

// DefaultDatasource returns the datasource every layer starts from. Caller
// DatasourceDefaults are merged over it.
func DefaultDatasource() map[string]any {
	return map[string]any{"type": "maptalks", "srid": 4326}
}

// Options configure a Store. Zero fields take the package defaults.
type Options struct {
	// CacheDir is the root of the on-disk layout: <CacheDir>/base and
	// <CacheDir>/cache.
	CacheDir            string
	TargetVersion       string
	DefaultStyleVersion string
	SRID                int
	// TileFormat overrides the default output format of every builder.
	TileFormat         string
	HTTPTimeout        time.Duration
	MapDefaults        map[string]string
	DatasourceDefaults map[string]any
	// Environment is passed to the rendering engine on construction.
	Environment map[string]any

	// Collaborators. Nil fields get the built-in implementations.
	Transformer render.Transformer
	Resolver    render.Resolver
	NewEngine   render.EngineFactory
}

// DefaultCacheDir returns $TMPDIR/grainstore.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), "grainstore")
}

// Merge returns o with every non-zero field of override applied. Map fields
// are merged key by key, with override winning.
func (o Options) Merge(override Options) Options {
	out := o
	if override.CacheDir != "" {
		out.CacheDir = override.CacheDir
	}
	if override.TargetVersion != "" {
		out.TargetVersion = override.TargetVersion
	}
	if override.DefaultStyleVersion != "" {
		out.DefaultStyleVersion = override.DefaultStyleVersion
	}
	if override.SRID != 0 {
		out.SRID = override.SRID
	}
	if override.TileFormat != "" {
		out.TileFormat = override.TileFormat
	}
	if override.HTTPTimeout != 0 {
		out.HTTPTimeout = override.HTTPTimeout
	}
	out.MapDefaults = mergeMaps(o.MapDefaults, override.MapDefaults)
	out.DatasourceDefaults = mergeMaps(o.DatasourceDefaults, override.DatasourceDefaults)
	out.Environment = mergeMaps(o.Environment, override.Environment)
	if override.Transformer != nil {
		out.Transformer = override.Transformer
	}
	if override.Resolver != nil {
		out.Resolver = override.Resolver
	}
	if override.NewEngine != nil {
		out.NewEngine = override.NewEngine
	}
	return out
}

func (o Options) withDefaults() Options {
	if o.CacheDir == "" {
		o.CacheDir = DefaultCacheDir()
	}
	if o.TargetVersion == "" {
		o.TargetVersion = DefaultTargetVersion
	}
	if o.DefaultStyleVersion == "" {
		o.DefaultStyleVersion = DefaultStyleVersion
	}
	if o.SRID == 0 {
		o.SRID = 4326
	}
	if o.HTTPTimeout == 0 {
		o.HTTPTimeout = DefaultHTTPTimeout
	}
	o.DatasourceDefaults = mergeMaps(DefaultDatasource(), o.DatasourceDefaults)
	return o
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
