package blocks

import (
	"context"
	"testing"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/graph"
	"github.com/stretchr/testify/require"
)

func TestConstantCallIsDeterministic(t *testing.T) {
	b := NewConstant("c", 7)
	out1, err := b.Call(context.Background(), nil)
	require.NoError(t, err)
	out2, err := b.Call(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, out1, out2, "a pure block called twice with the same inputs returns the same outputs")
	require.Equal(t, 7, out1["out_value"])
}

func TestIncrementCallAddsStep(t *testing.T) {
	b := NewIncrement("inc", 3)
	out, err := b.Call(context.Background(), map[string]any{"in_value": 10})
	require.NoError(t, err)
	require.Equal(t, 13, out["out_value"])
}

func TestIncrementDescribesStepArg(t *testing.T) {
	b := NewIncrement("inc", 5)
	describer, ok := b.Behavior.(block.ArgsDescriber)
	require.True(t, ok)
	require.Equal(t, map[string]any{"step": 5}, describer.DescribeArgs())
}

func TestSumCallAddsInputs(t *testing.T) {
	b := NewSum("sum")
	out, err := b.Call(context.Background(), map[string]any{"in_a": 2, "in_b": 5})
	require.NoError(t, err)
	require.Equal(t, 7, out["out_sum"])
}

func TestSumRejectsNonIntInput(t *testing.T) {
	b := NewSum("sum")
	_, err := b.Call(context.Background(), map[string]any{"in_a": "oops"})
	require.Error(t, err)
}

func TestPrinterRecordsLastFormattedValue(t *testing.T) {
	b := NewPrinter("p")
	_, err := b.Call(context.Background(), map[string]any{"in_value": 42})
	require.NoError(t, err)
	p, ok := b.Behavior.(*printerBehavior)
	require.True(t, ok)
	require.Equal(t, "42", p.Last())
}

func TestConfirmBlockIsInputAndPreservesOutOnRestart(t *testing.T) {
	b := NewConfirm("confirm")
	require.True(t, b.WaitForInput)

	require.NoError(t, b.Params.Set("in_value", 5))
	require.NoError(t, b.Params.Set("out_value", 99))

	require.NoError(t, b.Behavior.Execute(context.Background(), b.Params))

	v, err := b.Params.Get("out_value")
	require.NoError(t, err)
	require.Equal(t, 99, v, "confirm never copies in_value over a directly-set out_value")
}

// TestPauseResumeThroughConfirm exercises the chain constant -> increment ->
// confirm -> increment -> printer, matching spec.md S3's pause/resume shape.
func TestPauseResumeThroughConfirm(t *testing.T) {
	start := NewConstant("start", 5)
	toConfirm := NewIncrement("toConfirm", 1)
	confirm := NewConfirm("confirm")
	after := NewIncrement("after", 1)
	sink := NewPrinter("sink")

	d := graph.New()
	require.NoError(t, d.Connect(start, toConfirm, graph.Connection{SrcField: "out_value", DstField: "in_value"}))
	require.NoError(t, d.Connect(toConfirm, confirm, graph.Connection{SrcField: "out_value", DstField: "in_value"}))
	require.NoError(t, d.Connect(confirm, after, graph.Connection{SrcField: "out_value", DstField: "in_value"}))
	require.NoError(t, d.Connect(after, sink, graph.Connection{SrcField: "out_value", DstField: "in_value"}))

	res, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Paused)
	require.Equal(t, "confirm", res.Paused.Name)

	v, err := confirm.Params.Get("in_value")
	require.NoError(t, err)
	require.Equal(t, 6, v)

	require.NoError(t, confirm.Params.Set("out_value", 20))
	res, err = d.ExecuteAfterInput(context.Background(), confirm)
	require.NoError(t, err)
	require.Nil(t, res.Paused)

	out, err := after.Params.Get("out_value")
	require.NoError(t, err)
	require.Equal(t, 21, out)

	p, ok := sink.Behavior.(*printerBehavior)
	require.True(t, ok)
	require.Equal(t, "21", p.Last())
}
