package auth

import (
	"context"
	"net/http"
)

// CustomValidator is a host-supplied authentication capability.
//
// It receives the raw request and may read any of its fields (headers,
// cookies, TLS state). It may perform I/O of arbitrary latency; the
// dispatcher awaits it with no implicit timeout; bounding it via the
// request context is the host's responsibility.
//
// A nil *Verdict with a nil error is treated as a failure. Returned errors
// are converted into failure verdicts, never propagated to the transport.
type CustomValidator interface {
	Validate(ctx context.Context, r *http.Request) (*Verdict, error)
}

// CustomValidatorFunc adapts a function to the CustomValidator interface.
type CustomValidatorFunc func(ctx context.Context, r *http.Request) (*Verdict, error)

// Validate implements CustomValidator.
func (f CustomValidatorFunc) Validate(ctx context.Context, r *http.Request) (*Verdict, error) {
	return f(ctx, r)
}

// runCustom invokes the custom validator and normalizes its outcome into a
// well-formed Verdict.
func runCustom(ctx context.Context, v CustomValidator, r *http.Request) *Verdict {
	verdict, err := v.Validate(ctx, r)
	if err != nil {
		return Deny(SchemeCustom, "custom validation failed: "+err.Error())
	}
	if verdict == nil {
		return Deny(SchemeCustom, "custom validator rejected the request")
	}
	if verdict.Scheme == "" {
		verdict.Scheme = SchemeCustom
	}
	if verdict.Success {
		verdict.Error = ""
	} else if verdict.Error == "" {
		verdict.Error = "custom validator rejected the request"
	}
	return verdict
}
