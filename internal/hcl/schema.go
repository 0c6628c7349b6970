package hcl

import (
	"github.com/zclconf/go-cty/cty"
)

// fileSchema is the top-level structure of a configuration file.
type fileSchema struct {
	Stores   []*storeBlock   `hcl:"store,block"`
	Requests []*requestBlock `hcl:"request,block"`
}

// storeBlock represents a `store` block. At most one may appear across all
// loaded files.
type storeBlock struct {
	CacheDir            string    `hcl:"cache_dir,optional"`
	EngineVersion       string    `hcl:"engine_version,optional"`
	DefaultStyleVersion string    `hcl:"default_style_version,optional"`
	SRID                int       `hcl:"srid,optional"`
	TileFormat          string    `hcl:"tile_format,optional"`
	HTTPTimeout         string    `hcl:"http_timeout,optional"`
	Datasource          cty.Value `hcl:"datasource,optional"`
	Map                 cty.Value `hcl:"map,optional"`
	Environment         cty.Value `hcl:"environment,optional"`
}

// requestBlock represents a `request "<name>"` block. Fields the compiler
// validates itself are optional here so their errors come from one place.
type requestBlock struct {
	Name            string        `hcl:"name,label"`
	DBName          string        `hcl:"dbname,optional"`
	Style           cty.Value     `hcl:"style,optional"`
	StyleVersion    cty.Value     `hcl:"style_version,optional"`
	Interactivity   cty.Value     `hcl:"interactivity,optional"`
	Layer           cty.Value     `hcl:"layer,optional"`
	ExtraDatasource cty.Value     `hcl:"extra_datasource,optional"`
	Set             cty.Value     `hcl:"set,optional"`
	Tile            string        `hcl:"tile,optional"`
	Queries         []*queryBlock `hcl:"query,block"`
}

// queryBlock represents a `query` block inside a request.
type queryBlock struct {
	EngineHome string    `hcl:"engine_home,optional"`
	Layer      string    `hcl:"layer,optional"`
	Filter     string    `hcl:"filter,optional"`
	Params     cty.Value `hcl:"params,optional"`
	Extend     cty.Value `hcl:"extend,optional"`
}
