// Package mapnikxml is the reference rendering engine. It checks the
// stylesheets of a resolved map definition and serializes the definition
// into the XML map document consumed by Mapnik-style renderers.
package mapnikxml

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/render"
	"golang.org/x/mod/semver"
)

// MinimumVersion is the oldest engine version this package can emit for.
const MinimumVersion = "2.0.0"

// Engine renders map definitions to XML. It holds no per-render state.
type Engine struct {
	version string
	// strict turns style warnings into render errors.
	strict bool
}

// New validates the environment and options and returns an Engine.
//
// Recognized environment keys:
//
//	strict  bool  report malformed declarations as errors instead of warnings
func New(env map[string]any, opts render.EngineOptions) (*Engine, error) {
	v := opts.TargetVersion
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return nil, fmt.Errorf("unsupported engine version %q", opts.TargetVersion)
	}
	if semver.Compare(v, "v"+MinimumVersion) < 0 {
		return nil, fmt.Errorf("engine version %s is older than the minimum supported %s", opts.TargetVersion, MinimumVersion)
	}

	e := &Engine{version: strings.TrimPrefix(semver.Canonical(v), "v")}
	for key, val := range env {
		switch key {
		case "strict":
			b, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("engine environment %q must be a bool, got %T", key, val)
			}
			e.strict = b
		}
	}
	return e, nil
}

// Factory adapts New to render.EngineFactory.
func Factory(env map[string]any, opts render.EngineOptions) (render.Engine, error) {
	e, err := New(env, opts)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Render implements render.Engine. Every problem found in the stylesheets is
// collected before failing, so the returned *errs.RenderError lists them all.
func (e *Engine) Render(ctx context.Context, def *mapdef.MapDefinition) (string, error) {
	logger := ctxlog.FromContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if def == nil {
		return "", &errs.RenderError{Phase: errs.PhaseRender, Messages: []string{"no map definition"}}
	}

	var failures []string
	for _, s := range def.Stylesheets {
		for _, d := range check(s.Data) {
			msg := s.ID + ": " + d.message
			if d.severity == severityWarning && !e.strict {
				logger.Warn("Style warning.", "stylesheet", s.ID, "line", d.line, "message", d.message)
				continue
			}
			failures = append(failures, msg)
		}
	}
	if len(failures) > 0 {
		return "", &errs.RenderError{Phase: errs.PhaseRender, Messages: failures}
	}

	out, err := encode(def, e.version)
	if err != nil {
		return "", &errs.RenderError{Phase: errs.PhaseRender, Messages: []string{err.Error()}, Err: err}
	}
	logger.Debug("Map document rendered.", "layers", len(def.Layers), "bytes", len(out))
	return out, nil
}
