// Package render sequences the map rendering pipeline for a single request:
// style validation, version rewriting, compilation, resource resolution and
// engine invocation.
//
// The pipeline is strictly linear. The first failing stage ends the call and
// its error is returned as produced; no stage is retried and no partial
// document is ever returned. Engine failures, whether raised while the engine
// is constructed or while it renders, and whether returned or panicked, all
// come back as *errs.RenderError.
//
// The transformer, resolver and engine are interfaces defined here; default
// implementations live in the styletrans, resolver and mapnikxml packages.
package render
