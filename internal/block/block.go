package block

import (
	"context"
	"fmt"

	"github.com/dagflow/dagflow/internal/param"
)

// Behavior is the pair of hooks a concrete block type implements.
// Prepare runs when fresh values reach an input block, before it pauses,
// and before a normal block executes (UI setup / pre-execute
// validation); Execute does the actual work, and is the only hook a
// resumed input block runs. Either may return any error; the executor classifies it
// into a validation, block, or cancelled error kind (spec.md §7).
type Behavior interface {
	Prepare(ctx context.Context, params *param.Set) error
	Execute(ctx context.Context, params *param.Set) error
}

// NoopBehavior embeds into concrete block types that only need one of
// Prepare/Execute, giving the other a no-op default the way spec.md
// §4.2 describes ("prepare() default is a no-op ... execute() default
// is a no-op").
type NoopBehavior struct{}

func (NoopBehavior) Prepare(context.Context, *param.Set) error { return nil }
func (NoopBehavior) Execute(context.Context, *param.Set) error { return nil }

// ArgsDescriber is implemented by a Behavior that wants to control
// exactly which of its non-Parameter constructor arguments serialize/
// dump.go should persist, avoiding reflection over the constructor's
// declared parameter list (spec.md §9).
type ArgsDescriber interface {
	DescribeArgs() map[string]any
}

// Block is one instance of a unit of work inside (or outside) a Dag.
type Block struct {
	Name          string
	ClassKey      string
	Params        *param.Set
	Behavior      Behavior
	State         State
	WaitForInput  bool
	Visible       bool
	ContinueLabel string
}

// New constructs a Block. classKey is the library registry key used to
// reconstruct this block's class on Load (spec.md §4.4); it is normally
// stamped by the library package when the block is resolved through the
// registry, but a directly-constructed block may set it itself.
func New(name, classKey string, defs []*param.Parameter, behavior Behavior) *Block {
	return &Block{
		Name:     name,
		ClassKey: classKey,
		Params:   param.NewSet(name, defs),
		Behavior: behavior,
		State:    StateReady,
	}
}

// Call is the standalone (no-dag) invocation path: it accepts only
// declared "in_" fields, sets them, runs Prepare then Execute, and
// returns every "out_" field's value (spec.md §4.2 "__call__").
func (b *Block) Call(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	for name := range inputs {
		def, ok := b.Params.Def(name)
		if !ok || !def.IsInput() {
			return nil, fmt.Errorf("block %s: %q is not a declared input parameter", b.Name, name)
		}
	}
	if err := b.Params.Update(inputs); err != nil {
		return nil, err
	}

	if err := b.Behavior.Prepare(ctx, b.Params); err != nil {
		return nil, fmt.Errorf("block %s: prepare failed: %w", b.Name, err)
	}
	if err := b.Behavior.Execute(ctx, b.Params); err != nil {
		return nil, fmt.Errorf("block %s: execute failed: %w", b.Name, err)
	}

	out := make(map[string]any)
	for _, name := range b.Params.Names() {
		def, _ := b.Params.Def(name)
		if def.IsOutput() {
			v, _ := b.Params.Get(name)
			out[name] = v
		}
	}
	return out, nil
}
