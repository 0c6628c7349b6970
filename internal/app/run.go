package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/vk/grainstore/internal/config"
	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/store"
)

// Run executes the main application logic: either purge the resource cache
// or compile one request and write the result.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Purge {
		report, err := a.store.PurgeCache(ctx, a.config.PurgeTTL, a.config.PurgeLabel)
		if err != nil {
			return fmt.Errorf("failed to purge cache: %w", err)
		}
		a.logger.Info("Purge finished.", "scanned", report.Scanned, "removed", report.Removed, "failed", report.Failed)
		return nil
	}

	req, err := a.selectRequest()
	if err != nil {
		return err
	}
	logger := a.logger.With("request", req.Name)

	mreq := req.MapRequest()
	if a.config.Tile != "" {
		mreq.Tile = a.config.Tile
	}
	builder, err := a.store.CreateBuilder(ctx, mreq, store.Options{})
	if err != nil {
		return fmt.Errorf("request %q is invalid: %w", req.Name, err)
	}
	for _, name := range sortedKeys(req.Set) {
		if err := builder.Set(name, req.Set[name]); err != nil {
			return fmt.Errorf("request %q: %w", req.Name, err)
		}
	}

	var out string
	switch a.config.Emit {
	case EmitDefinition:
		def, err := builder.Definition(ctx)
		if err != nil {
			return a.renderFailure(req, err)
		}
		b, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode map definition: %w", err)
		}
		out = string(b) + "\n"
	default:
		out, err = builder.Render(ctx)
		if err != nil {
			return a.renderFailure(req, err)
		}
	}

	if err := a.write(out); err != nil {
		return err
	}
	logger.Info("Map compiled.", "emit", a.config.Emit, "bytes", len(out))
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) selectRequest() (*config.Request, error) {
	names := a.model.RequestNames()
	if a.config.Request != "" {
		req, ok := a.model.Requests[a.config.Request]
		if !ok {
			return nil, fmt.Errorf("request %q not found; available: %s", a.config.Request, strings.Join(names, ", "))
		}
		return req, nil
	}
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("no request blocks found in configuration")
	case 1:
		return a.model.Requests[names[0]], nil
	default:
		return nil, fmt.Errorf("configuration holds %d requests, choose one with -request: %s", len(names), strings.Join(names, ", "))
	}
}

func (a *App) renderFailure(req *config.Request, err error) error {
	a.logger.Error("Map compilation failed.", "request", req.Name, "kind", errs.KindOf(err), "error", err)
	return fmt.Errorf("request %q failed: %w", req.Name, err)
}

func (a *App) write(out string) error {
	if a.config.Output == "" {
		_, err := io.WriteString(a.outW, out)
		return err
	}
	if err := os.WriteFile(a.config.Output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
