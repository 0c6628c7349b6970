package config

import (
	"sort"
	"time"

	"github.com/vk/grainstore/internal/mapdef"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of all loaded configuration.
type Model struct {
	// Store is nil when no store block was given.
	Store    *Store
	Requests map[string]*Request
}

// Store holds the settings shared by every builder.
type Store struct {
	CacheDir            string
	EngineVersion       string
	DefaultStyleVersion string
	SRID                int
	TileFormat          string
	HTTPTimeout         time.Duration
	Datasource          map[string]any
	Map                 map[string]string
	Environment         map[string]any
}

// Request is one map request.
type Request struct {
	Name string
	// Source is the file the request was defined in.
	Source string

	DatabaseName       string
	Queries            []mapdef.Query
	Style              cty.Value
	StyleVersion       cty.Value
	Interactivity      cty.Value
	InteractivityLayer cty.Value
	ExtraDatasource    []map[string]any
	Tile               string

	// Set holds builder property overrides applied after construction.
	Set map[string]cty.Value
}

// MapRequest returns the compiler input described by r.
func (r *Request) MapRequest() *mapdef.Request {
	return &mapdef.Request{
		DatabaseName:           r.DatabaseName,
		Queries:                r.Queries,
		Style:                  r.Style,
		StyleVersion:           r.StyleVersion,
		Interactivity:          r.Interactivity,
		InteractivityLayer:     r.InteractivityLayer,
		ExtraDatasourceOptions: r.ExtraDatasource,
		Tile:                   r.Tile,
	}
}

// RequestNames returns the names of all requests in sorted order.
func (m *Model) RequestNames() []string {
	names := make([]string, 0, len(m.Requests))
	for name := range m.Requests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
