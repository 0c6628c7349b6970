package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/mapdef"
)

// dumper renders definitions for debug logs with stable key order.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Pipeline holds the collaborators and shared settings of the render
// pipeline. A Pipeline is read-only once built and may serve concurrent
// calls.
type Pipeline struct {
	Transformer Transformer
	// Resolver may be nil, in which case definitions are rendered unresolved.
	Resolver  Resolver
	NewEngine EngineFactory

	Environment         map[string]any
	TargetVersion       string
	DefaultStyleVersion string

	BaseDir  string
	CacheDir string
}

// Job is the input of one render call.
type Job struct {
	Plan     *mapdef.Plan
	Settings mapdef.Settings
}

// Compile validates and rewrites the job's styles and assembles the map
// definition. No I/O happens here.
func (p *Pipeline) Compile(ctx context.Context, job Job) (*mapdef.MapDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	if p.Transformer == nil {
		return nil, errors.New("render: no style transformer configured")
	}
	plan := job.Plan
	if plan == nil {
		return nil, errs.Validation(errs.MissingRequiredField, errs.NoIndex, "Missing request")
	}

	if err := mapdef.ValidateStyles(plan.Styles); err != nil {
		logger.Debug("Style validation failed.", "error", err)
		return nil, err
	}

	rewritten := make([]string, len(plan.Styles))
	for i, style := range plan.Styles {
		from := p.sourceVersion(plan, i)
		out, err := p.Transformer.Transform(style, from, p.TargetVersion)
		if err != nil {
			logger.Debug("Style version transform failed.", "layer", i, "from", from, "to", p.TargetVersion, "error", err)
			return nil, err
		}
		rewritten[i] = out
	}
	logger.Debug("Styles rewritten.", "count", len(rewritten), "target_version", p.TargetVersion)

	base, err := mapdef.BuildBase(plan, job.Settings)
	if err != nil {
		return nil, err
	}
	def, err := mapdef.AttachStylesheets(base, rewritten, plan.StylesArray, p.Transformer.RewriteSelectorName)
	if err != nil {
		return nil, err
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.Debug("Map definition compiled.", "layers", len(def.Layers), "definition", dumper.Sdump(def))
	}
	return def, nil
}

// Resolved compiles the job and localizes the resources it references.
func (p *Pipeline) Resolved(ctx context.Context, job Job) (*mapdef.MapDefinition, error) {
	def, err := p.Compile(ctx, job)
	if err != nil {
		return nil, err
	}
	if p.Resolver == nil {
		return def, nil
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving external resources.", "base_dir", p.BaseDir, "cache_dir", p.CacheDir)
	resolved, err := p.Resolver.Resolve(ctx, ResolveRequest{
		Definition: def,
		BaseDir:    p.BaseDir,
		CacheDir:   p.CacheDir,
	})
	if err != nil {
		logger.Debug("Resource resolution failed.", "error", err)
		return nil, err
	}
	return resolved, nil
}

// Render runs the whole pipeline and returns the engine output unmodified.
func (p *Pipeline) Render(ctx context.Context, job Job) (string, error) {
	logger := ctxlog.FromContext(ctx)
	if p.NewEngine == nil {
		return "", errors.New("render: no engine factory configured")
	}

	def, err := p.Resolved(ctx, job)
	if err != nil {
		return "", err
	}

	engine, err := p.construct()
	if err != nil {
		logger.Debug("Engine construction failed.", "error", err)
		return "", err
	}

	out, err := invoke(ctx, engine, def)
	if err != nil {
		logger.Debug("Engine render failed.", "error", err)
		return "", err
	}
	logger.Debug("Map rendered.", "bytes", len(out))
	return out, nil
}

func (p *Pipeline) sourceVersion(plan *mapdef.Plan, i int) string {
	if i < len(plan.Versions) && plan.Versions[i] != "" {
		return plan.Versions[i]
	}
	if p.DefaultStyleVersion != "" {
		return p.DefaultStyleVersion
	}
	return p.TargetVersion
}

// construct builds an engine, turning errors and panics into a RenderError.
func (p *Pipeline) construct() (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine, err = nil, fromPanic(errs.PhaseConstruct, r)
		}
	}()

	env := make(map[string]any, len(p.Environment))
	for k, v := range p.Environment {
		env[k] = v
	}
	engine, err = p.NewEngine(env, EngineOptions{TargetVersion: p.TargetVersion})
	if err != nil {
		return nil, normalize(errs.PhaseConstruct, err)
	}
	if engine == nil {
		return nil, &errs.RenderError{Phase: errs.PhaseConstruct, Messages: []string{"engine factory returned no engine"}}
	}
	return engine, nil
}

func invoke(ctx context.Context, engine Engine, def *mapdef.MapDefinition) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fromPanic(errs.PhaseRender, r)
		}
	}()

	out, err = engine.Render(ctx, def)
	if err != nil {
		return "", normalize(errs.PhaseRender, err)
	}
	return out, nil
}

// diagnostic is implemented by engine errors that carry several messages.
type diagnostic interface {
	Diagnostics() []string
}

func normalize(phase string, err error) error {
	var rerr *errs.RenderError
	if errors.As(err, &rerr) {
		out := *rerr
		if out.Phase == "" {
			out.Phase = phase
		}
		return &out
	}
	var d diagnostic
	if errors.As(err, &d) && len(d.Diagnostics()) > 0 {
		return &errs.RenderError{Phase: phase, Messages: d.Diagnostics(), Err: err}
	}
	return &errs.RenderError{Phase: phase, Messages: []string{err.Error()}, Err: err}
}

func fromPanic(phase string, r any) error {
	if err, ok := r.(error); ok {
		return normalize(phase, err)
	}
	return &errs.RenderError{Phase: phase, Messages: []string{fmt.Sprint(r)}}
}
