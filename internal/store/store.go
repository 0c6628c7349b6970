// Package store owns the configuration shared by a family of map builders
// and the on-disk resource cache they render through.
package store

import (
	"context"
	"path/filepath"

	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/mapnikxml"
	"github.com/vk/grainstore/internal/render"
	"github.com/vk/grainstore/internal/resolver"
	"github.com/vk/grainstore/internal/styletrans"
)

// Store creates builders. It is safe for concurrent use.
type Store struct {
	opts Options
	// ownResolver is set when the resolver was built from opts.HTTPTimeout.
	ownResolver bool
}

// New returns a Store with opts applied over the defaults.
func New(opts Options) *Store {
	opts = opts.withDefaults()
	if opts.Transformer == nil {
		opts.Transformer = styletrans.New()
	}
	ownResolver := opts.Resolver == nil
	if ownResolver {
		opts.Resolver = resolver.New(resolver.WithTimeout(opts.HTTPTimeout))
	}
	if opts.NewEngine == nil {
		opts.NewEngine = mapnikxml.Factory
	}
	return &Store{opts: opts, ownResolver: ownResolver}
}

// Options returns the effective store options.
func (s *Store) Options() Options {
	return s.opts
}

// BaseDir is where relative resource references are resolved.
func (s *Store) BaseDir() string {
	return filepath.Join(s.opts.CacheDir, "base")
}

// CacheDirPath is where downloaded resources are kept.
func (s *Store) CacheDirPath() string {
	return filepath.Join(s.opts.CacheDir, "cache")
}

// CreateBuilder validates req and returns a builder for it. Non-zero fields
// of overrides take precedence over the store options for this builder only.
func (s *Store) CreateBuilder(ctx context.Context, req *mapdef.Request, overrides Options) (*Builder, error) {
	logger := ctxlog.FromContext(ctx)

	plan, err := mapdef.Normalize(req)
	if err != nil {
		logger.Debug("Request rejected.", "error", err)
		return nil, err
	}

	opts := s.opts.Merge(overrides)
	if s.ownResolver && overrides.Resolver == nil && opts.HTTPTimeout != s.opts.HTTPTimeout {
		opts.Resolver = resolver.New(resolver.WithTimeout(opts.HTTPTimeout))
	}
	root := opts.CacheDir
	b := &Builder{
		plan: plan,
		srid: opts.SRID,
		pipeline: &render.Pipeline{
			Transformer:         opts.Transformer,
			Resolver:            opts.Resolver,
			NewEngine:           opts.NewEngine,
			Environment:         opts.Environment,
			TargetVersion:       opts.TargetVersion,
			DefaultStyleVersion: opts.DefaultStyleVersion,
			BaseDir:             filepath.Join(root, "base"),
			CacheDir:            filepath.Join(root, "cache"),
		},
		props: properties{
			format:     opts.TileFormat,
			mapDefault: cloneStrings(opts.MapDefaults),
			datasource: cloneAny(opts.DatasourceDefaults),
		},
	}
	logger.Debug("Builder created.", "dbname", plan.DatabaseName, "layers", len(plan.Queries))
	return b, nil
}
