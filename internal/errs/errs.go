// Package errs defines the error taxonomy shared by every stage of the
// compile and render pipeline.
//
// Errors are plain Go values. A stage never wraps the error of an earlier
// stage, so callers can match the concrete type with errors.As and get the
// original value back.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by the pipeline stage that produced it.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindValidation Kind = "validation"
	KindTransform  Kind = "transform"
	KindResolution Kind = "resolution"
	KindRender     Kind = "render"
)

// Code identifies a specific validation failure.
type Code string

const (
	// MissingRequiredField indicates the request lacks a database name or queries.
	MissingRequiredField Code = "missing-required-field"
	// InvalidLayerIndex indicates the interactivity layer is not a usable integer.
	InvalidLayerIndex Code = "invalid-layer-index"
	// InvalidInteractivityFormat indicates a field list with an empty field name.
	InvalidInteractivityFormat Code = "invalid-interactivity-format"
	// InvalidInteractivityValue indicates an interactivity entry that is neither a string nor falsy.
	InvalidInteractivityValue Code = "invalid-interactivity-value"
	// InvalidStyleValue indicates a style entry that is not a string.
	InvalidStyleValue Code = "invalid-style-value"
	// EmptyStyleFragment indicates a blank style fragment.
	EmptyStyleFragment Code = "empty-style-fragment"
	// MisalignedField indicates an array field whose length does not match the queries.
	MisalignedField Code = "misaligned-field"
	// UnknownProperty indicates an attempt to mutate a non-whitelisted builder property.
	UnknownProperty Code = "unknown-property"
	// InvalidTile indicates a tile address that is malformed or outside the pyramid.
	InvalidTile Code = "invalid-tile"
	// InvalidPropertyValue indicates a whitelisted property set to a value of the wrong shape.
	InvalidPropertyValue Code = "invalid-property-value"
)

// NoIndex marks a validation error that is not tied to a layer.
const NoIndex = -1

// ValidationError is returned for malformed requests and settings.
type ValidationError struct {
	Code    Code
	Index   int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation builds a ValidationError with a formatted message.
func Validation(code Code, index int, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Index: index, Message: fmt.Sprintf(format, args...)}
}

// TransformError is returned when a style fragment cannot be rewritten
// between style-language versions.
type TransformError struct {
	Index   int
	From    string
	To      string
	Message string
}

func (e *TransformError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("style%d: %s", e.Index, e.Message)
	}
	return e.Message
}

// ResolutionError is returned when an external resource cannot be localized.
type ResolutionError struct {
	Resource string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to localize resource %q: %v", e.Resource, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Render phases.
const (
	PhaseConstruct = "construct"
	PhaseRender    = "render"
)

// RenderError is the single failure shape of the rendering engine, whether
// it failed while being constructed or while rendering.
type RenderError struct {
	Phase    string
	Messages []string
	Err      error
}

func (e *RenderError) Error() string {
	switch len(e.Messages) {
	case 0:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "render failed"
	case 1:
		return e.Messages[0]
	default:
		return strings.Join(e.Messages, "\n")
	}
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Diagnostics returns the engine messages carried by the error.
func (e *RenderError) Diagnostics() []string {
	return e.Messages
}

// KindOf reports which stage produced err.
func KindOf(err error) Kind {
	var (
		verr *ValidationError
		terr *TransformError
		rerr *ResolutionError
		xerr *RenderError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &verr):
		return KindValidation
	case errors.As(err, &terr):
		return KindTransform
	case errors.As(err, &rerr):
		return KindResolution
	case errors.As(err, &xerr):
		return KindRender
	}
	return KindUnknown
}

// IsCode reports whether err is a ValidationError with the given code.
func IsCode(err error, code Code) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Code == code
}
