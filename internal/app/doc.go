// Package app contains the host process logic. It loads configuration into a
// store, then renders one request or purges the resource cache, decoupled
// from any specific entrypoint like a CLI.
package app
