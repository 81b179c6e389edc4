package graph

import (
	"context"
	"errors"

	"github.com/dagflow/dagflow/internal/backoff"
	"github.com/dagflow/dagflow/internal/block"
)

// RetryingContext decorates another ExecutionContext, retrying a
// record's dispatched call under Policy whenever it fails with an
// unclassified (KindBlock) error — a transient fault, as opposed to a
// validation, cancellation, or structural failure, none of which retrying
// can fix. It retries whatever fn Run receives, which is whatever drain
// built for this record (Prepare+Execute together on an ordinary
// dispatch, Execute alone on a restart, Prepare alone while pausing) —
// Run only sees the closure, not the individual hooks composing it. It
// delegates every state transition to Inner.
type RetryingContext struct {
	Inner  ExecutionContext
	Policy backoff.RetryPolicy
}

// NewRetryingContext builds a RetryingContext backed by the Dag's
// default ExecutionContext, retrying under policy (cmd/dagflow's
// `--retry` flag; spec.md §9's swappable execution-context factory).
func NewRetryingContext(policy backoff.RetryPolicy) *RetryingContext {
	return &RetryingContext{Inner: defaultContext{}, Policy: policy}
}

func (c *RetryingContext) Run(ctx context.Context, b *block.Block, isInput bool, fn func(context.Context) error) (bool, error) {
	retrier := backoff.NewRetrier(c.Policy)
	for {
		cancel, err := c.Inner.Run(ctx, b, isInput, fn)
		if err == nil {
			return cancel, nil
		}

		var gerr *Error
		if !errors.As(err, &gerr) || gerr.Kind != KindBlock {
			return cancel, err
		}

		if waitErr := retrier.Next(ctx, gerr.Err); waitErr != nil {
			return cancel, err
		}
	}
}
