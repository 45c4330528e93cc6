package generate

import (
	"context"
	"errors"
)

var (
	// ErrNoHandler is returned when the generation function cannot be found
	ErrNoHandler = errors.New("generate: generation function not found")
	// ErrBadResult is returned when the function does not return a usable path
	ErrBadResult = errors.New("generate: function did not return an audio path")
)

// DefaultFunction is the name the handlers call unless configured otherwise
const DefaultFunction = "main_generation_handler"

// Handler performs one generation call and returns the audio file path. It
// may block for as long as the call takes and should return when ctx ends.
type Handler interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req Request) (string, error)

func (f HandlerFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
