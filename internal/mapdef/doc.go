// Package mapdef turns a map styling request into the canonical, layered map
// definition document consumed by the rendering engine.
//
// # Core Concepts
//
//   - Request: what the caller supplies. The style, style version,
//     interactivity and layer fields may each be a scalar or an array, so
//     they are carried as cty.Value until the request is normalized.
//
//   - Plan: the normalized request. Every per-layer field is a slice aligned
//     index-for-index with the queries. A scalar, or an array of length one,
//     is broadcast to all layers; any other length must match the number of
//     queries.
//
//   - MapDefinition: the compiled document. It is built fresh for every
//     render and owned by that render alone.
//
// Compilation is pure: nothing in this package performs I/O. Stylesheets are
// attached after version rewriting, which happens elsewhere; AttachStylesheets
// only performs the per-layer selector renaming.
package mapdef
