// Package blocks ships a handful of worked-example block classes:
// Constant, Increment, Sum, Printer, and Confirm. They double as
// registry-discovery fixtures and as the blocks wired into the
// pause/resume chain test, the dump/load round-trip test, and the CLI
// run test (SPEC_FULL.md §4.7).
package blocks

import (
	"context"
	"fmt"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/library"
	"github.com/dagflow/dagflow/internal/param"
)

const groupKey = "dagflow/blocks"

func init() {
	library.RegisterProvider(groupKey, provider{})
}

type provider struct{}

func (provider) Blocks() []library.Info {
	return []library.Info{
		{Key: "dagflow/blocks.Constant", Doc: "Emits a fixed integer value."},
		{Key: "dagflow/blocks.Increment", Doc: "Adds a configurable step to its input."},
		{Key: "dagflow/blocks.Sum", Doc: "Adds two integer inputs together."},
		{Key: "dagflow/blocks.Printer", Doc: "Formats its input as a string; a terminal sink."},
		{Key: "dagflow/blocks.Confirm", Doc: "Passes a value through only once a user confirms it."},
	}
}

func (provider) Dags() []library.Info { return nil }

func (provider) BlockFactory(key string) library.BlockFactory {
	switch key {
	case "dagflow/blocks.Constant":
		return func(args map[string]any) *block.Block {
			return NewConstant(argString(args, "name", "constant"), argInt(args, "value", 0))
		}
	case "dagflow/blocks.Increment":
		return func(args map[string]any) *block.Block {
			return NewIncrement(argString(args, "name", "increment"), argInt(args, "step", 1))
		}
	case "dagflow/blocks.Sum":
		return func(args map[string]any) *block.Block {
			return NewSum(argString(args, "name", "sum"))
		}
	case "dagflow/blocks.Printer":
		return func(args map[string]any) *block.Block {
			return NewPrinter(argString(args, "name", "printer"))
		}
	case "dagflow/blocks.Confirm":
		return func(args map[string]any) *block.Block {
			return NewConfirm(argString(args, "name", "confirm"))
		}
	default:
		return nil
	}
}

// argString and argInt pull a dumped constructor arg out of a Tree
// entry's args map, falling back to a default when the key is absent
// or the wrong type — dumped args are plain JSON-ish values, so a
// round-tripped int may arrive as float64 if the Tree passed through a
// JSON encode/decode.
func argString(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func (provider) DagFactory(string) library.DagFactory { return nil }

// constantBehavior writes Value into out_value every time it runs, the
// way a source block with no inputs seeds a Dag's head set (spec.md
// S1's "constant" block; grounded on original_source's NumberGizmo,
// which sets its own output field from internal state rather than from
// any input).
type constantBehavior struct {
	block.NoopBehavior
	Value int
}

func (c *constantBehavior) Execute(_ context.Context, params *param.Set) error {
	return params.Set("out_value", c.Value)
}

// DescribeArgs reports Value as a constructor argument worth dumping
// (block.ArgsDescriber; spec.md §9).
func (c *constantBehavior) DescribeArgs() map[string]any {
	return map[string]any{"value": c.Value}
}

// NewConstant builds a Constant block: no inputs, one integer output
// out_value, set to initial on every Execute.
func NewConstant(name string, initial int) *block.Block {
	beh := &constantBehavior{Value: initial}
	defs := []*param.Parameter{
		{Name: "out_value", Type: param.TypeInt, Default: initial},
	}
	return block.New(name, "dagflow/blocks.Constant", defs, beh)
}

// incrementBehavior reads in_value and writes in_value+Step to
// out_value (spec.md's "Q" gizmo in simple_dag.py: qo = qi + 1).
type incrementBehavior struct {
	block.NoopBehavior
	Step int
}

func (inc *incrementBehavior) Execute(_ context.Context, params *param.Set) error {
	v, err := params.Get("in_value")
	if err != nil {
		return err
	}
	n, ok := v.(int)
	if !ok {
		return fmt.Errorf("increment: in_value must be an int, got %T", v)
	}
	return params.Set("out_value", n+inc.Step)
}

// NewIncrement builds an Increment block: in_value -> out_value = in_value + step.
func NewIncrement(name string, step int) *block.Block {
	beh := &incrementBehavior{Step: step}
	defs := []*param.Parameter{
		{Name: "in_value", Type: param.TypeInt, Default: 0},
		{Name: "out_value", Type: param.TypeInt, Default: 0},
		{Name: "step", Type: param.TypeInt, Default: step},
	}
	return block.New(name, "dagflow/blocks.Increment", defs, beh)
}

// DescribeArgs reports step as a constructor argument worth dumping,
// rather than requiring serialize to reflect over every declared field
// (block.ArgsDescriber; spec.md §9).
func (inc *incrementBehavior) DescribeArgs() map[string]any {
	return map[string]any{"step": inc.Step}
}

// sumBehavior adds two integer inputs, mirroring original_source's
// AddGizmo. Unlike AddGizmo, it does not special-case a "None" input:
// this model's typed Parameters always carry a concrete, validated
// value (their Default, until overwritten), so there is nothing
// analogous to Python's None to guard against.
type sumBehavior struct{ block.NoopBehavior }

func (sumBehavior) Execute(_ context.Context, params *param.Set) error {
	a, err := params.Get("in_a")
	if err != nil {
		return err
	}
	b, err := params.Get("in_b")
	if err != nil {
		return err
	}
	ai, aok := a.(int)
	bi, bok := b.(int)
	if !aok || !bok {
		return fmt.Errorf("sum: in_a and in_b must be ints, got %T and %T", a, b)
	}
	return params.Set("out_sum", ai+bi)
}

// NewSum builds a Sum block: in_a, in_b -> out_sum = in_a + in_b.
func NewSum(name string) *block.Block {
	defs := []*param.Parameter{
		{Name: "in_a", Type: param.TypeInt, Default: 0},
		{Name: "in_b", Type: param.TypeInt, Default: 0},
		{Name: "out_sum", Type: param.TypeInt, Default: 0},
	}
	return block.New(name, "dagflow/blocks.Sum", defs, sumBehavior{})
}

// printerBehavior formats its input into internal state; a tail block
// with no outputs, the way "R" in simple_dag.py only ever prints.
type printerBehavior struct {
	block.NoopBehavior
	last string
}

func (p *printerBehavior) Execute(_ context.Context, params *param.Set) error {
	v, err := params.Get("in_value")
	if err != nil {
		return err
	}
	p.last = fmt.Sprintf("%v", v)
	return nil
}

// Last returns the most recently formatted value. A Printer writes
// nowhere else, so this is the only record of its output.
func (p *printerBehavior) Last() string { return p.last }

// NewPrinter builds a Printer block: in_value, no outputs.
func NewPrinter(name string) *block.Block {
	defs := []*param.Parameter{
		{Name: "in_value", Type: param.TypeObject, Default: nil},
	}
	return block.New(name, "dagflow/blocks.Printer", defs, &printerBehavior{})
}

// confirmBehavior is deliberately a pure NoopBehavior: an input block's
// out_value is only ever set directly, by a caller simulating a user's
// confirmation (param.Set.Set/Update), never copied from in_value by
// Execute. Scenario S3 requires this: its confirm block's prior
// out_value must survive its own restart-Execute call unchanged.
type confirmBehavior struct{ block.NoopBehavior }

// NewConfirm builds a Confirm block: an input block (WaitForInput=true)
// that holds in_value and out_value, and pauses the Dag on every fresh
// arrival of in_value until a caller sets out_value and resumes it via
// Dag.ExecuteAfterInput (spec.md S3's "I2").
func NewConfirm(name string) *block.Block {
	defs := []*param.Parameter{
		{Name: "in_value", Type: param.TypeInt, Default: 0},
		{Name: "out_value", Type: param.TypeInt, Default: 0},
	}
	b := block.New(name, "dagflow/blocks.Confirm", defs, confirmBehavior{})
	b.WaitForInput = true
	b.Visible = true
	b.ContinueLabel = "Confirm"
	return b
}
