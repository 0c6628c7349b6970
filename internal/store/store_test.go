package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/grainstore/internal/errs"
	"github.com/vk/grainstore/internal/mapdef"
	"github.com/vk/grainstore/internal/resolver"
	"github.com/vk/grainstore/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func twoLayerRequest() *mapdef.Request {
	return &mapdef.Request{
		DatabaseName:  "gis",
		Queries:       []mapdef.Query{{Layer: "roads"}, {Layer: "pois"}},
		Style:         mapdef.String("#layer { line-width: 1; }"),
		Interactivity: mapdef.String("cartodb_id, name"),
	}
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.CacheDir == "" {
		opts.CacheDir = t.TempDir()
	}
	return New(opts)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(Options{})
	opts := s.Options()
	assert.Equal(t, filepath.Join(os.TempDir(), "grainstore"), opts.CacheDir)
	assert.Equal(t, "2.3.0", opts.TargetVersion)
	assert.Equal(t, "2.0.0", opts.DefaultStyleVersion)
	assert.Equal(t, 4326, opts.SRID)
	assert.NotNil(t, opts.Transformer)
	assert.NotNil(t, opts.Resolver)
	assert.NotNil(t, opts.NewEngine)
	assert.Equal(t, map[string]any{"type": "maptalks", "srid": 4326}, opts.DatasourceDefaults)
	assert.Equal(t, filepath.Join(opts.CacheDir, "base"), s.BaseDir())
	assert.Equal(t, filepath.Join(opts.CacheDir, "cache"), s.CacheDirPath())
}

func TestCreateBuilder_RejectsInvalidRequests(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{})

	b, err := s.CreateBuilder(ctx, &mapdef.Request{Queries: []mapdef.Query{{Layer: "a"}}}, Options{})
	require.Nil(t, b)
	require.True(t, errs.IsCode(err, errs.MissingRequiredField))

	req := twoLayerRequest()
	req.InteractivityLayer = cty.StringVal("cipz")
	b, err = s.CreateBuilder(ctx, req, Options{})
	require.Nil(t, b)
	require.True(t, errs.IsCode(err, errs.InvalidLayerIndex))
	assert.Equal(t, "Invalid (non-integer) layer value type: cipz", err.Error())
}

func TestBuilder_RendersWithDefaultCollaborators(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{})

	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)

	out, err := b.Render(ctx)
	require.NoError(t, err)
	assert.Contains(t, out, `<Map srs="+init=epsg:4326" minimum-version="2.3.0">`)
	assert.Contains(t, out, `<Parameter name="format"><![CDATA[png]]></Parameter>`)
	assert.Contains(t, out, `<Parameter name="interactivity_fields"><![CDATA[cartodb_id,name]]></Parameter>`)
	assert.Contains(t, out, `<Layer name="layer0" srs="+init=epsg:4326">`)
	assert.Contains(t, out, `<Layer name="layer1" srs="+init=epsg:4326">`)
	assert.Contains(t, out, `<Stylesheet name="style.mss"><![CDATA[#layer { line-width: 1; }]]></Stylesheet>`)

	again, err := b.Render(ctx)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestBuilder_FormatPrecedence(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	def := func(s *Store, overrides Options) *mapdef.MapDefinition {
		b, err := s.CreateBuilder(ctx, twoLayerRequest(), overrides)
		require.NoError(t, err)
		d, err := b.Definition(ctx)
		require.NoError(t, err)
		return d
	}

	assert.Equal(t, "png", def(newTestStore(t, Options{}), Options{}).Format)
	assert.Equal(t, "png32", def(newTestStore(t, Options{TileFormat: "png32"}), Options{}).Format)
	assert.Equal(t, "jpeg", def(newTestStore(t, Options{TileFormat: "png32"}), Options{TileFormat: "jpeg"}).Format)
}

func TestBuilder_SetTakesEffectOnNextRender(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{MapDefaults: map[string]string{"buffer-size": "64"}})

	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)

	require.NoError(t, b.Set(PropertyFormat, cty.StringVal("jpeg")))
	require.NoError(t, b.Set(PropertyMap, cty.ObjectVal(map[string]cty.Value{
		"buffer-size": cty.NumberIntVal(128),
	})))
	require.NoError(t, b.Set(PropertyDatasource, cty.ObjectVal(map[string]cty.Value{
		"type": cty.StringVal("postgis"),
		"port": cty.NumberIntVal(5432),
	})))

	d, err := b.Definition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", d.Format)
	assert.Equal(t, map[string]string{"buffer-size": "128"}, d.Properties)
	assert.Equal(t, map[string]any{
		"type":   "postgis",
		"port":   int64(5432),
		"dbname": "gis",
		"layer":  "roads",
	}, d.Layers[0].Datasource)
}

func TestBuilder_SetRejectsUnknownAndMalformed(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{})

	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)

	err = b.Set("srid", cty.NumberIntVal(3857))
	require.True(t, errs.IsCode(err, errs.UnknownProperty))
	assert.Equal(t, `Unknown property "srid": settable properties are datasource, format, map`, err.Error())

	err = b.Set(PropertyFormat, cty.NumberIntVal(1))
	require.True(t, errs.IsCode(err, errs.InvalidPropertyValue))
	assert.Equal(t, "Invalid value for property format: expected string, got number", err.Error())

	err = b.Set(PropertyMap, cty.StringVal("buffer-size=1"))
	require.True(t, errs.IsCode(err, errs.InvalidPropertyValue))

	err = b.Set(PropertyMap, cty.ObjectVal(map[string]cty.Value{
		"nested": cty.ObjectVal(map[string]cty.Value{"a": cty.StringVal("b")}),
	}))
	require.True(t, errs.IsCode(err, errs.InvalidPropertyValue))

	d, err := b.Definition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "png", d.Format, "failed sets leave properties unchanged")
}

func TestBuilders_AreIndependent(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{
		MapDefaults:        map[string]string{"buffer-size": "64"},
		DatasourceDefaults: map[string]any{"type": "postgis"},
	})

	a, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)
	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{
		MapDefaults: map[string]string{"background-color": "#fff"},
	})
	require.NoError(t, err)

	a.SetFormat("jpeg")
	a.SetDatasourceDefaults(map[string]any{"type": "shape"})

	da, err := a.Definition(ctx)
	require.NoError(t, err)
	db, err := b.Definition(ctx)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", da.Format)
	assert.Equal(t, "png", db.Format)
	assert.Equal(t, "shape", da.Layers[0].Datasource["type"])
	assert.Equal(t, "postgis", db.Layers[0].Datasource["type"])
	assert.Equal(t, map[string]string{"buffer-size": "64"}, da.Properties)
	assert.Equal(t, map[string]string{"buffer-size": "64", "background-color": "#fff"}, db.Properties)
	assert.Equal(t, map[string]string{"buffer-size": "64"}, s.Options().MapDefaults, "overrides must not leak into the store")
}

func TestBuilder_ConcurrentRenderAndSet(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{})

	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := b.Render(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				b.SetFormat("png")
			} else {
				b.SetMapDefaults(map[string]string{"buffer-size": "32"})
			}
		}()
	}
	wg.Wait()
}

func TestOptions_Merge(t *testing.T) {
	t.Parallel()

	base := Options{
		CacheDir:    "/a",
		SRID:        4326,
		TileFormat:  "png",
		Environment: map[string]any{"strict": false, "x": 1},
	}
	got := base.Merge(Options{
		SRID:        3857,
		Environment: map[string]any{"strict": true},
		HTTPTimeout: time.Second,
	})

	assert.Equal(t, "/a", got.CacheDir)
	assert.Equal(t, 3857, got.SRID)
	assert.Equal(t, "png", got.TileFormat)
	assert.Equal(t, time.Second, got.HTTPTimeout)
	assert.Equal(t, map[string]any{"strict": true, "x": 1}, got.Environment)
	assert.Equal(t, map[string]any{"strict": false, "x": 1}, base.Environment)
	assert.Nil(t, got.MapDefaults)
}

func TestBuilder_DefaultDatasource(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	s := newTestStore(t, Options{DatasourceDefaults: map[string]any{"srid": 3857, "user": "gis"}})
	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)
	d, err := b.Definition(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"type":   "maptalks",
		"srid":   3857,
		"user":   "gis",
		"dbname": "gis",
		"layer":  "roads",
	}, d.Layers[0].Datasource)
	assert.Equal(t, "+init=epsg:3857", d.Layers[0].SRS)
	assert.Equal(t, "+init=epsg:4326", d.SRS)
}

func TestCreateBuilder_HTTPTimeoutOverride(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	s := newTestStore(t, Options{HTTPTimeout: 5 * time.Second})

	same, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{})
	require.NoError(t, err)
	assert.Same(t, s.Options().Resolver, same.pipeline.Resolver)

	b, err := s.CreateBuilder(ctx, twoLayerRequest(), Options{HTTPTimeout: time.Second})
	require.NoError(t, err)
	r, ok := b.pipeline.Resolver.(*resolver.Resolver)
	require.True(t, ok)
	assert.NotSame(t, s.Options().Resolver, b.pipeline.Resolver)
	assert.Equal(t, time.Second, r.Timeout())
	assert.Equal(t, 5*time.Second, s.Options().Resolver.(*resolver.Resolver).Timeout())

	custom := &testutil.FakeResolver{}
	s = newTestStore(t, Options{Resolver: custom})
	b, err = s.CreateBuilder(ctx, twoLayerRequest(), Options{HTTPTimeout: time.Second})
	require.NoError(t, err)
	assert.Same(t, custom, b.pipeline.Resolver, "caller resolvers are kept")
}
