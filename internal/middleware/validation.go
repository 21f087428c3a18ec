package middleware

import (
	"context"

	"github.com/ensembleai/ensemble/pkg/errdefs"
	"github.com/ensembleai/ensemble/pkg/models"
)

// InputValidator checks an invocation before the chain continues.
type InputValidator func(inv *Invocation) error

// OutputValidator checks a response after the chain returns.
type OutputValidator func(resp *models.Response) error

// Validation rejects malformed input before the downstream call and/or
// malformed output after it.
type Validation struct {
	input  InputValidator
	output OutputValidator
}

// NewValidation creates a validation middleware. Either validator may be
// nil to skip that direction.
func NewValidation(input InputValidator, output OutputValidator) *Validation {
	return &Validation{input: input, output: output}
}

// Name identifies the middleware.
func (m *Validation) Name() string { return "validation" }

// Intercept validates input, calls next, then validates output.
func (m *Validation) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	if m.input != nil {
		if err := m.input(inv); err != nil {
			return nil, &errdefs.MiddlewareError{
				Middleware: m.Name(),
				Err:        &errdefs.ValidationError{Stage: "input", Reason: err.Error()},
			}
		}
	}

	resp, err := next(ctx, inv)
	if err != nil {
		return nil, err
	}

	if m.output != nil {
		if err := m.output(resp); err != nil {
			return nil, &errdefs.MiddlewareError{
				Middleware: m.Name(),
				Err:        &errdefs.ValidationError{Stage: "output", Reason: err.Error()},
			}
		}
	}
	return resp, nil
}

// Verify Validation implements Middleware at compile time.
var _ Middleware = (*Validation)(nil)
