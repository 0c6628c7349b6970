package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/grainstore/internal/app"
)

func TestParse_Success(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"-c", "main.hcl",
		"-request", "roads",
		"-tile", "3/4/2",
		"-emit", "DEFINITION",
		"-o", "out.json",
		"-log-level", "DEBUG",
		"-log-format", "text",
		"extra.hcl",
	}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)

	want := &app.Config{
		ConfigPaths: []string{"main.hcl", "extra.hcl"},
		Request:     "roads",
		Tile:        "3/4/2",
		Emit:        app.EmitDefinition,
		Output:      "out.json",
		LogFormat:   "text",
		LogLevel:    "debug",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, shouldExit, err := Parse([]string{"conf"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, []string{"conf"}, cfg.ConfigPaths)
	assert.Equal(t, app.EmitXML, cfg.Emit)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Purge)
}

func TestParse_Purge(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"-config", "conf", "-purge", "-purge-ttl", "36h", "-purge-label", "nightly"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, cfg.Purge)
	assert.Equal(t, 36*time.Hour, cfg.PurgeTTL)
	assert.Equal(t, "nightly", cfg.PurgeLabel)
}

func TestParse_HelpAndNoArgs(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"-h"}, {}} {
		out := &bytes.Buffer{}
		cfg, shouldExit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"-nope"}, want: "flag provided but not defined: -nope"},
		{name: "log format", args: []string{"-log-format", "xml", "conf"}, want: "invalid log-format: must be 'text' or 'json'"},
		{name: "log level", args: []string{"-log-level", "trace", "conf"}, want: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"},
		{name: "emit", args: []string{"-emit", "svg", "conf"}, want: "invalid emit mode: must be 'xml' or 'definition'"},
		{name: "negative ttl", args: []string{"-purge-ttl", "-1h", "conf"}, want: "purge-ttl must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
			assert.Equal(t, tc.want, exitErr.Message)
		})
	}
}
