// Package harness runs the application end to end against HCL files written
// into a temporary directory.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/grainstore/internal/app"
	"github.com/vk/grainstore/internal/hcl"
	"github.com/vk/grainstore/internal/store"
	"github.com/vk/grainstore/internal/testutil"
)

// Result holds everything a test may want to inspect after a run.
type Result struct {
	Err    error
	Output string
	Logs   string
	// Root is the temporary directory the files were written to.
	Root string
	// Store is nil when the application failed to start.
	Store *store.Store
}

// Run writes files (relative path to content) into a temporary directory and
// runs the application with cfg. When cfg names no configuration paths the
// whole directory is loaded. The store cache lives under "<root>/.cache".
func Run(t *testing.T, files map[string]string, cfg app.Config) *Result {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	if len(cfg.ConfigPaths) == 0 {
		cfg.ConfigPaths = []string{root}
	} else {
		paths := make([]string, len(cfg.ConfigPaths))
		for i, p := range cfg.ConfigPaths {
			paths[i] = filepath.Join(root, p)
		}
		cfg.ConfigPaths = paths
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out, logs := &bytes.Buffer{}, &testutil.SafeBuffer{}
	res := &Result{Root: root}
	t.Cleanup(func() {
		if os.Getenv("GRAINSTORE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("application startup panicked: %v", r)
			}
		}()
		a := app.NewApp(out, logs, config, hcl.NewLoader(), store.Options{CacheDir: filepath.Join(root, ".cache")})
		res.Store = a.Store()
		res.Err = a.Run(context.Background())
	}()

	res.Output = out.String()
	res.Logs = logs.String()
	return res
}
