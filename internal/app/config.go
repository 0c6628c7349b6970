package app

import (
	"errors"
	"time"
)

// Emit modes.
const (
	EmitXML        = "xml"
	EmitDefinition = "definition"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // hcl files or directories
	// Request names the request to render. It may be empty when the
	// configuration holds exactly one request.
	Request string
	// Tile, when set, overrides the tile of the selected request.
	Tile string
	Emit string
	// Output is a file path; empty means the app's writer.
	Output string

	Purge      bool
	PurgeTTL   time.Duration
	PurgeLabel string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	switch cfg.Emit {
	case "":
		cfg.Emit = EmitXML
	case EmitXML, EmitDefinition:
	default:
		return nil, errors.New("invalid emit mode: must be 'xml' or 'definition'")
	}
	if cfg.PurgeTTL < 0 {
		return nil, errors.New("purge-ttl must not be negative")
	}
	return &cfg, nil
}
