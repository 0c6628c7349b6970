// Package config defines the format-agnostic configuration model of the
// application and the Loader interface that concrete formats implement.
//
// A Model holds the store settings and the map requests to compile. Request
// fields that may be either a scalar or a list are kept as cty values and
// normalized later by the map definition compiler.
package config
