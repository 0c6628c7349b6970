package render

import (
	"context"

	"github.com/vk/grainstore/internal/mapdef"
)

// Transformer rewrites style fragments between style-language versions.
type Transformer interface {
	// Transform rewrites style from one version to another.
	Transform(style, from, to string) (string, error)
	// RewriteSelectorName renames the leading selector of style to layer.
	RewriteSelectorName(style, layer string) string
}

// ResolveRequest is the input of one resource localization.
type ResolveRequest struct {
	Definition *mapdef.MapDefinition
	BaseDir    string
	CacheDir   string
}

// Resolver localizes external resources referenced by a map definition.
type Resolver interface {
	// Resolve returns a definition whose remote and relative resource
	// references point at local files. Resources already present in
	// CacheDir are reused.
	Resolve(ctx context.Context, req ResolveRequest) (*mapdef.MapDefinition, error)
}

// EngineOptions configures a rendering engine instance.
type EngineOptions struct {
	TargetVersion string
}

// Engine turns a resolved map definition into the final output document.
type Engine interface {
	Render(ctx context.Context, def *mapdef.MapDefinition) (string, error)
}

// EngineFactory constructs an engine. It may fail, or panic, on fatal
// configuration errors.
type EngineFactory func(env map[string]any, opts EngineOptions) (Engine, error)
