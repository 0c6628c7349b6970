// Package resolver is the default resource resolver. It localizes the
// external resources a map definition references: url(...) values inside
// stylesheets and file datasource parameters.
//
// Remote resources are downloaded into the cache directory under a name
// derived from their URL, and reused on later calls. Relative references are
// resolved against the base directory.
package resolver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/render"
	"golang.org/x/sync/singleflight"
)

var (
	urlRe = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^)'"\s]*))\s*\)`)
	extRe = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)
)

// fileParams are datasource parameters that name a file.
var fileParams = []string{"file"}

// Resolver localizes resources through a shared on-disk cache.
type Resolver struct {
	client *http.Client
	group  singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTimeout sets the per-download timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.client = newHTTPClient(d) }
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{client: newHTTPClient(DefaultTimeout)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ render.Resolver = (*Resolver)(nil)

// Timeout returns the download timeout of the resolver's client.
func (r *Resolver) Timeout() time.Duration {
	return r.client.Timeout
}

// Resolve implements render.Resolver. The input definition is not modified.
func (r *Resolver) Resolve(ctx context.Context, req render.ResolveRequest) (*mapdef.MapDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	if req.Definition == nil {
		return nil, errors.New("resolver: no map definition")
	}
	for _, dir := range []string{req.BaseDir, req.CacheDir} {
		if dir == "" {
			return nil, &errs.ResolutionError{Resource: dir, Err: errors.New("cache directory not configured")}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &errs.ResolutionError{Resource: dir, Err: err}
		}
	}

	def := req.Definition.Clone()
	localized := 0
	for i := range def.Stylesheets {
		data, n, err := r.rewriteURLs(ctx, def.Stylesheets[i].Data, req)
		if err != nil {
			return nil, err
		}
		def.Stylesheets[i].Data = data
		localized += n
	}
	for i := range def.Layers {
		for _, key := range fileParams {
			ref, ok := def.Layers[i].Datasource[key].(string)
			if !ok || ref == "" {
				continue
			}
			local, err := r.localize(ctx, ref, req)
			if err != nil {
				return nil, err
			}
			def.Layers[i].Datasource[key] = local
			localized++
		}
	}

	logger.Debug("Resources resolved.", "count", localized)
	return def, nil
}

// rewriteURLs replaces every url(...) in style with its local path.
func (r *Resolver) rewriteURLs(ctx context.Context, style string, req render.ResolveRequest) (string, int, error) {
	matches := urlRe.FindAllStringSubmatchIndex(style, -1)
	if len(matches) == 0 {
		return style, 0, nil
	}

	var b strings.Builder
	last, n := 0, 0
	for _, m := range matches {
		ref := ""
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				ref = style[m[2*g]:m[2*g+1]]
				break
			}
		}
		local, err := r.localize(ctx, ref, req)
		if err != nil {
			return "", 0, err
		}
		b.WriteString(style[last:m[0]])
		if local == ref {
			b.WriteString(style[m[0]:m[1]])
		} else {
			fmt.Fprintf(&b, "url(%q)", local)
			n++
		}
		last = m[1]
	}
	b.WriteString(style[last:])
	return b.String(), n, nil
}

// localize returns the local path for ref. References the engine handles
// itself, such as shape:// markers, are returned unchanged.
func (r *Resolver) localize(ctx context.Context, ref string, req render.ResolveRequest) (string, error) {
	if ref == "" {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", &errs.ResolutionError{Resource: ref, Err: err}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return r.download(ctx, ref, req.CacheDir)
	case "file":
		return r.local(u.Path)
	case "":
		if filepath.IsAbs(ref) {
			return r.local(ref)
		}
		return r.local(filepath.Join(req.BaseDir, filepath.FromSlash(ref)))
	default:
		return ref, nil
	}
}

func (r *Resolver) local(p string) (string, error) {
	if _, err := os.Stat(p); err != nil {
		return "", &errs.ResolutionError{Resource: p, Err: err}
	}
	return p, nil
}

// CacheName is the file name a remote resource is stored under.
func CacheName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	name := hex.EncodeToString(sum[:])
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); extRe.MatchString(ext) {
			name += strings.ToLower(ext)
		}
	}
	return name
}

func (r *Resolver) download(ctx context.Context, rawURL, cacheDir string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	target := filepath.Join(cacheDir, CacheName(rawURL))

	if _, err := os.Stat(target); err == nil {
		logger.Debug("Resource already cached.", "url", rawURL, "path", target)
		return target, nil
	}

	_, err, shared := r.group.Do(target, func() (any, error) {
		if _, err := os.Stat(target); err == nil {
			return nil, nil
		}
		return nil, r.fetch(ctx, rawURL, target)
	})
	if err != nil {
		return "", &errs.ResolutionError{Resource: rawURL, Err: err}
	}
	if shared {
		logger.Debug("Resource download shared with a concurrent render.", "url", rawURL)
	}
	return target, nil
}
