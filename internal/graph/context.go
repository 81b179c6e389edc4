package graph

import (
	"context"
	"errors"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/param"
)

// ExecutionContext wraps one block's Prepare+Execute call, performing
// the state transitions and error classification spec.md §4.3 and §7
// describe. fn runs whatever hooks this record dispatches to; isInput
// is the block's own wait_for_input trait, which alone decides the
// post-success state (spec.md §4.3.4: "WAITING if the block is an
// input block, else SUCCESSFUL" — independent of whether this
// particular call paused the loop). Run classifies any error into a
// *Error and reports whether the Dag's cancellation flag should be set.
type ExecutionContext interface {
	Run(ctx context.Context, b *block.Block, isInput bool, fn func(context.Context) error) (cancel bool, err error)
}

// defaultContext is the Dag's built-in ExecutionContext. On success it
// moves a block to Waiting (if it is an input block) or Successful. On
// failure it moves the block to Interrupted (cancellation) or Error,
// and only sets the cancel flag for cancellation and unclassified block
// errors — a validation failure never stops the Dag.
type defaultContext struct{}

func (defaultContext) Run(ctx context.Context, b *block.Block, isInput bool, fn func(context.Context) error) (bool, error) {
	b.State = block.StateExecuting

	err := fn(ctx)
	switch {
	case err == nil:
		if isInput {
			b.State = block.StateWaiting
		} else {
			b.State = block.StateSuccessful
		}
		return false, nil

	case errors.Is(err, context.Canceled):
		b.State = block.StateInterrupted
		return true, &Error{Kind: KindCancelled, BlockName: b.Name, Err: err}

	default:
		var verr *param.ValidationError
		if errors.As(err, &verr) {
			b.State = block.StateError
			return false, &Error{Kind: KindValidation, BlockName: b.Name, Err: err}
		}
		b.State = block.StateError
		return true, &Error{Kind: KindBlock, BlockName: b.Name, Err: err}
	}
}
