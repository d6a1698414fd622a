package ports

import (
	"context"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// LeadSubmitter delivers a collected lead to an external system.
//
// The engine calls Submit at most once per conversation and swallows any
// error: the thank-you turn has already been shown and must not be retracted.
// Implementations should be timeout-bounded and must not retry.
type LeadSubmitter interface {
	Submit(ctx context.Context, lead domain.Lead) error
}

// SubmitterFunc adapts a function to the LeadSubmitter interface.
type SubmitterFunc func(ctx context.Context, lead domain.Lead) error

// Submit implements LeadSubmitter.
func (f SubmitterFunc) Submit(ctx context.Context, lead domain.Lead) error {
	return f(ctx, lead)
}

// NopSubmitter discards leads. Useful for demos and tests.
type NopSubmitter struct{}

// Submit implements LeadSubmitter.
func (NopSubmitter) Submit(ctx context.Context, lead domain.Lead) error { return nil }
