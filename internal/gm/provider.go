// Package gm is the game master: it asks an external text-generation
// service for scenes and resolutions and turns its free-form replies into
// validated models.
package gm

import (
	"context"
	"errors"
	"fmt"
)

// Kind names the payload a request asks for.
type Kind string

const (
	KindScene      Kind = "scene"
	KindResolution Kind = "resolution"
)

// Request is a single role-scoped generation call.
type Request struct {
	Kind   Kind
	System string
	Prompt string
}

// Provider is a text-generation backend. Complete returns the raw reply
// text; callers handle extraction and validation.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrGenerationUnavailable is returned once every attempt of a round
	// trip has failed.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrMalformedResponse covers replies without a JSON object, replies
	// that do not decode and objects that violate the schema.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrNoJSONObject indicates a reply with no {...} span at all.
	ErrNoJSONObject = fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	// ErrEmptyResponse indicates the provider returned no text.
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrMalformedResponse)
)

// SchemaError reports the first field of a payload that is missing or has
// the wrong type.
type SchemaError struct {
	Field   string
	Problem string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Field, e.Problem)
}

// Is makes every SchemaError match ErrMalformedResponse.
func (e *SchemaError) Is(target error) bool {
	return target == ErrMalformedResponse
}
