package hcl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/grainstore/internal/config"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const storeHCL = `
store {
  cache_dir             = "/var/cache/grainstore"
  engine_version        = "2.3.0"
  default_style_version = "2.0.0"
  srid                  = 3857
  tile_format           = "png32"
  http_timeout          = "10s"
  datasource  = { type = "postgis", host = "localhost", port = 5432 }
  map         = { "buffer-size" = 128 }
  environment = { strict = true }
}
`

const requestHCL = `
request "roads" {
  dbname        = "gis"
  style         = ["#a { line-color: red; }", "#b { marker-width: 4; }"]
  style_version = "2.0.0"
  interactivity = ["cartodb_id,name", null]
  layer         = 0
  extra_datasource = [{ geometry_field = "the_geom" }, {}]
  set = { format = "jpeg" }
  tile = "3/4/2"

  query {
    layer  = "roads"
    params = { extent = "-180,-90,180,90" }
  }
  query {
    layer  = "(SELECT * FROM pois) AS q"
    extend = { srid = 3857 }
  }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Directory(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	dir := t.TempDir()
	writeFile(t, dir, "store.hcl", storeHCL)
	reqPath := writeFile(t, dir, "requests/roads.hcl", requestHCL)

	model, err := NewLoader().Load(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, &config.Store{
		CacheDir:            "/var/cache/grainstore",
		EngineVersion:       "2.3.0",
		DefaultStyleVersion: "2.0.0",
		SRID:                3857,
		TileFormat:          "png32",
		HTTPTimeout:         10 * time.Second,
		Datasource:          map[string]any{"type": "postgis", "host": "localhost", "port": int64(5432)},
		Map:                 map[string]string{"buffer-size": "128"},
		Environment:         map[string]any{"strict": true},
	}, model.Store)

	require.Equal(t, []string{"roads"}, model.RequestNames())
	r := model.Requests["roads"]
	assert.Equal(t, reqPath, r.Source)
	assert.Equal(t, "gis", r.DatabaseName)
	assert.Equal(t, []mapdef.Query{
		{Layer: "roads", Params: map[string]any{"extent": "-180,-90,180,90"}},
		{Layer: "(SELECT * FROM pois) AS q", Extend: map[string]any{"srid": int64(3857)}},
	}, r.Queries)
	assert.Equal(t, []map[string]any{{"geometry_field": "the_geom"}, {}}, r.ExtraDatasource)
	require.Contains(t, r.Set, "format")
	assert.Equal(t, "jpeg", r.Set["format"].AsString())

	plan, err := mapdef.Normalize(r.MapRequest())
	require.NoError(t, err)
	assert.True(t, plan.StylesArray)
	assert.Equal(t, []string{"#a { line-color: red; }", "#b { marker-width: 4; }"}, plan.Styles)
	assert.Equal(t, []string{"2.0.0", "2.0.0"}, plan.Versions)
	assert.Equal(t, []string{"cartodb_id,name", ""}, plan.Interactivity)
	assert.Equal(t, 0, plan.InteractivityLayer)
	require.NotNil(t, plan.Tile)
	assert.Equal(t, "3/4/2", plan.Tile.String())
}

func TestLoad_OptionalFieldsAreNull(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	path := writeFile(t, t.TempDir(), "min.hcl", `
request "min" {
  dbname = "gis"
  style  = "#layer { line-width: 1; }"
  query { layer = "roads" }
}
`)
	model, err := NewLoader().Load(ctx, path)
	require.NoError(t, err)
	assert.Nil(t, model.Store)

	r := model.Requests["min"]
	assert.True(t, r.StyleVersion.IsNull())
	assert.True(t, r.Interactivity.IsNull())
	assert.True(t, r.InteractivityLayer.IsNull())
	assert.Nil(t, r.ExtraDatasource)
	assert.Nil(t, r.Set)
	assert.Equal(t, cty.StringVal("#layer { line-width: 1; }"), r.Style)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "syntax error",
			files: map[string]string{"a.hcl": "request \"x\" {\n"},
			want:  "failed to parse HCL file",
		},
		{
			name:  "unknown block",
			files: map[string]string{"a.hcl": "step \"x\" {}\n"},
			want:  "failed to decode HCL file",
		},
		{
			name:  "duplicate store",
			files: map[string]string{"a.hcl": "store {}\n", "b.hcl": "store {}\n"},
			want:  "duplicate store block",
		},
		{
			name:  "duplicate request",
			files: map[string]string{"a.hcl": "request \"x\" {\n query { layer = \"t\" }\n}\n", "b.hcl": "request \"x\" {\n query { layer = \"t\" }\n}\n"},
			want:  `duplicate request "x"`,
		},
		{
			name:  "bad timeout",
			files: map[string]string{"a.hcl": "store {\n http_timeout = \"soon\"\n}\n"},
			want:  `invalid http_timeout "soon"`,
		},
		{
			name:  "params not an object",
			files: map[string]string{"a.hcl": "request \"x\" {\n query {\n layer = \"t\"\n params = \"p\"\n }\n}\n"},
			want:  "query[0].params: expected object, got string",
		},
		{
			name:  "set not an object",
			files: map[string]string{"a.hcl": "request \"x\" {\n set = \"jpeg\"\n query { layer = \"t\" }\n}\n"},
			want:  "set: expected object, got string",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			dir := t.TempDir()
			for name, content := range tc.files {
				writeFile(t, dir, name, content)
			}
			_, err := NewLoader().Load(ctx, dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_NoFiles(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	_, err := NewLoader().Load(ctx, t.TempDir())
	require.ErrorContains(t, err, "no .hcl configuration files found")
}

func TestLoad_FunctionsAndEnvironment(t *testing.T) {
	t.Setenv("GRAINSTORE_TEST_DBNAME", "from_env")
	ctx, _ := testutil.Context(t)

	dir := t.TempDir()
	writeFile(t, dir, "styles/roads.mss", "#roads { line-width: 1; }\n")
	path := writeFile(t, dir, "main.hcl", `
request "roads" {
  dbname = lower(env.GRAINSTORE_TEST_DBNAME)
  style  = trimspace(file("styles/roads.mss"))
  query { layer = format("%s_%d", "roads", 3) }
}
`)

	model, err := NewLoader().Load(ctx, path)
	require.NoError(t, err)

	r := model.Requests["roads"]
	assert.Equal(t, "from_env", r.DatabaseName)
	assert.Equal(t, cty.StringVal("#roads { line-width: 1; }"), r.Style)
	assert.Equal(t, "roads_3", r.Queries[0].Layer)
}

func TestLoad_MissingStyleFile(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	path := writeFile(t, t.TempDir(), "main.hcl", `
request "roads" {
  dbname = "gis"
  style  = file("missing.mss")
  query { layer = "roads" }
}
`)
	_, err := NewLoader().Load(ctx, path)
	require.ErrorContains(t, err, "failed to decode HCL file")
	require.ErrorContains(t, err, "missing.mss")
}
