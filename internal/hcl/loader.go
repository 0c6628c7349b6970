// Package hcl provides the HCL implementation of config.Loader. It is
// responsible for file discovery, parsing, and translating the HCL schema
// into the format-agnostic configuration model.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/grainstore/internal/config"
	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file found under paths and merges them into one
// model. A path may be a file or a directory, which is searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFilesByExtension(p, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find configuration files in %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl configuration files found in %v", paths)
	}
	logger.Debug("Configuration files discovered.", "count", len(files))

	model := &config.Model{Requests: make(map[string]*config.Request)}
	var storeSource string
	parser := hclparse.NewParser()

	for _, file := range files {
		logger.Debug("Decoding configuration file.", "path", file)
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var parsed fileSchema
		if diags := gohcl.DecodeBody(f.Body, evalContext(file), &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, sb := range parsed.Stores {
			if storeSource != "" {
				return nil, fmt.Errorf("duplicate store block in %s: only one store block is allowed, the first is in %s", file, storeSource)
			}
			s, err := translateStore(sb)
			if err != nil {
				return nil, fmt.Errorf("in store block of %s: %w", file, err)
			}
			model.Store, storeSource = s, file
		}

		for _, rb := range parsed.Requests {
			if prev, ok := model.Requests[rb.Name]; ok {
				return nil, fmt.Errorf("duplicate request %q in %s: already defined in %s", rb.Name, file, prev.Source)
			}
			r, err := translateRequest(rb, file)
			if err != nil {
				return nil, fmt.Errorf("in request %q of %s: %w", rb.Name, file, err)
			}
			model.Requests[rb.Name] = r
		}

		logger.Debug("Successfully decoded configuration file.", "path", file, "stores_found", len(parsed.Stores), "requests_found", len(parsed.Requests))
	}

	return model, nil
}
