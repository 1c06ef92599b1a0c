package ai

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/openai/openai-go/v3"
)

// ErrorKind classifies why an extraction call failed
type ErrorKind string

const (
	KindConnection ErrorKind = "connection"
	KindTimeout    ErrorKind = "timeout"
	KindMalformed  ErrorKind = "malformed_response"
	KindUpstream   ErrorKind = "upstream"
)

var (
	// ErrConnection indicates the model endpoint could not be reached
	ErrConnection = errors.New("model endpoint unreachable")
	// ErrTimeout indicates the call exceeded its time bound
	ErrTimeout = errors.New("model request timed out")
	// ErrMalformedResponse indicates the model output was not the expected JSON shape
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrUpstream indicates the endpoint answered with a non-success status
	ErrUpstream = errors.New("model endpoint error")
)

// ExtractionError is returned by every failed Extractor call
type ExtractionError struct {
	Kind       ErrorKind
	Op         string
	Detail     string
	StatusCode int
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (%s, status %d): %s", e.Op, e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Op, e.Kind, e.Detail)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *ExtractionError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ExtractionError) sentinel() error {
	switch e.Kind {
	case KindConnection:
		return ErrConnection
	case KindTimeout:
		return ErrTimeout
	case KindMalformed:
		return ErrMalformedResponse
	case KindUpstream:
		return ErrUpstream
	default:
		return nil
	}
}

// Timeout reports whether the error is a time-bound failure
func (e *ExtractionError) Timeout() bool {
	return e.Kind == KindTimeout
}

func malformed(op, detail string, err error) *ExtractionError {
	return &ExtractionError{Kind: KindMalformed, Op: op, Detail: detail, Err: err}
}

// classifyError maps a transport or API failure into an ExtractionError.
// ctx is the bounded context the call ran under.
func classifyError(ctx context.Context, op string, err error) *ExtractionError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ExtractionError{
			Kind:       KindUpstream,
			Op:         op,
			Detail:     fmt.Sprintf("model endpoint returned status %d", apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ExtractionError{Kind: KindTimeout, Op: op, Detail: "request took too long", Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &ExtractionError{Kind: KindTimeout, Op: op, Detail: "request cancelled by caller", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ExtractionError{Kind: KindTimeout, Op: op, Detail: "request took too long", Err: err}
	}

	return &ExtractionError{Kind: KindConnection, Op: op, Detail: "cannot connect to model endpoint", Err: err}
}
