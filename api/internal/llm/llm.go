// Package llm wraps the text-generation services used by the solve pipeline.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Prompt is one generation request.
type Prompt struct {
	System          string
	User            string
	Temperature     float32
	MaxOutputTokens int
}

// Generator turns a prompt into text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, p Prompt) (string, error)
}

var ErrEmpty = errors.New("empty content")

// FailureKind classifies why an upstream call did not produce usable text.
type FailureKind string

const (
	FailureTransport   FailureKind = "transport"
	FailureTimeout     FailureKind = "timeout"
	FailureStatus      FailureKind = "status"
	FailureContentType FailureKind = "content_type"
	FailureMalformed   FailureKind = "malformed"
	FailureEmpty       FailureKind = "empty"
)

// UpstreamError describes a failed generation call. Body holds a bounded
// snippet of the raw response for diagnosis.
type UpstreamError struct {
	Service string
	Kind    FailureKind
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Service, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " %d", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// classify wraps err into an UpstreamError, detecting deadline overruns.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	kind := FailureTransport
	if errors.Is(err, context.DeadlineExceeded) {
		kind = FailureTimeout
	}
	return &UpstreamError{Service: service, Kind: kind, Err: err}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func ptrFloat32(v float32) *float32 { return &v }
