package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/render"
)

// TransformCall records one Transform invocation.
type TransformCall struct {
	Style, From, To string
}

// FakeTransformer is a recording transformer. It returns the style unchanged
// unless Fail is set, and renames selectors by replacing the first "#layer".
type FakeTransformer struct {
	mu    sync.Mutex
	Calls []TransformCall
	// Fail, when non-nil, is consulted for every call.
	Fail func(style string) error
}

// Transform implements render.Transformer.
func (f *FakeTransformer) Transform(style, from, to string) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, TransformCall{Style: style, From: from, To: to})
	f.mu.Unlock()
	if f.Fail != nil {
		if err := f.Fail(style); err != nil {
			return "", err
		}
	}
	return style, nil
}

// RewriteSelectorName implements render.Transformer.
func (f *FakeTransformer) RewriteSelectorName(style, layer string) string {
	return strings.Replace(style, "#layer", "#"+layer, 1)
}

// CallCount returns the number of Transform calls so far.
func (f *FakeTransformer) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeResolver is a recording resolver returning a copy of its input.
type FakeResolver struct {
	mu       sync.Mutex
	Requests []render.ResolveRequest
	Err      error
}

// Resolve implements render.Resolver.
func (f *FakeResolver) Resolve(_ context.Context, req render.ResolveRequest) (*mapdef.MapDefinition, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return req.Definition.Clone(), nil
}

// CallCount returns the number of Resolve calls so far.
func (f *FakeResolver) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// FakeEngine renders a definition into a compact, deterministic text form.
type FakeEngine struct {
	Err error
}

// Render implements render.Engine.
func (e *FakeEngine) Render(_ context.Context, def *mapdef.MapDefinition) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "map srs=%s format=%s\n", def.SRS, def.Format)
	for _, l := range def.Layers {
		fmt.Fprintf(&b, "layer %s layer=%v\n", l.ID, l.Datasource["layer"])
	}
	for _, s := range def.Stylesheets {
		fmt.Fprintf(&b, "style %s %s\n", s.ID, s.Data)
	}
	if def.Interactivity != nil {
		fmt.Fprintf(&b, "interactivity %s %s\n", def.Interactivity.Layer, strings.Join(def.Interactivity.Fields, ","))
	}
	return b.String(), nil
}

// EngineRecorder builds FakeEngines and records how often it was asked to.
type EngineRecorder struct {
	mu      sync.Mutex
	Builds  int
	Options []render.EngineOptions
	Envs    []map[string]any

	// ConstructErr is returned from the factory when set.
	ConstructErr error
	// ConstructPanic is panicked from the factory when non-nil.
	ConstructPanic any
	// RenderErr is returned by the built engine when set.
	RenderErr error
}

// Factory returns a render.EngineFactory bound to the recorder.
func (r *EngineRecorder) Factory() render.EngineFactory {
	return func(env map[string]any, opts render.EngineOptions) (render.Engine, error) {
		r.mu.Lock()
		r.Builds++
		r.Options = append(r.Options, opts)
		r.Envs = append(r.Envs, env)
		r.mu.Unlock()
		if r.ConstructPanic != nil {
			panic(r.ConstructPanic)
		}
		if r.ConstructErr != nil {
			return nil, r.ConstructErr
		}
		return &FakeEngine{Err: r.RenderErr}, nil
	}
}

// BuildCount returns the number of engines built so far.
func (r *EngineRecorder) BuildCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Builds
}
