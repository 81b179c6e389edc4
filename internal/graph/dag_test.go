package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/param"
	"github.com/stretchr/testify/require"
)

type addOneBehavior struct{ block.NoopBehavior }

func (addOneBehavior) Execute(_ context.Context, p *param.Set) error {
	in, _ := p.Get("in_x")
	return p.Set("out_x", in.(int)+1)
}

func newAddOne(name string) *block.Block {
	return block.New(name, "test.AddOne", []*param.Parameter{
		{Name: "in_x", Type: param.TypeInt},
		{Name: "out_x", Type: param.TypeInt},
	}, addOneBehavior{})
}

type sumBehavior struct{ block.NoopBehavior }

func (sumBehavior) Execute(_ context.Context, p *param.Set) error {
	a, _ := p.Get("in_a")
	b, _ := p.Get("in_b")
	return p.Set("out_sum", a.(int)+b.(int))
}

func newSum(name string) *block.Block {
	return block.New(name, "test.Sum", []*param.Parameter{
		{Name: "in_a", Type: param.TypeInt},
		{Name: "in_b", Type: param.TypeInt},
		{Name: "out_sum", Type: param.TypeInt},
	}, sumBehavior{})
}

// newConfirm builds an input block that does nothing on its own: any
// output value comes from a direct Params.Set simulating a user's
// confirmation, never from the block's own hooks.
func newConfirm(name string) *block.Block {
	b := block.New(name, "test.Confirm", []*param.Parameter{
		{Name: "in_x", Type: param.TypeInt},
		{Name: "out_x", Type: param.TypeInt},
	}, block.NoopBehavior{})
	b.WaitForInput = true
	return b
}

type failBehavior struct {
	block.NoopBehavior
	err error
}

func (f failBehavior) Execute(context.Context, *param.Set) error { return f.err }

func newFailing(name string, err error) *block.Block {
	return block.New(name, "test.Fail", []*param.Parameter{
		{Name: "in_x", Type: param.TypeInt},
		{Name: "out_x", Type: param.TypeInt},
	}, failBehavior{err: err})
}

// mustSet assigns a head block's own field directly, the way a caller
// configures a run's starting values before Execute (spec.md §5 "a run
// starts by seeding one or more head blocks") — the Dag itself only
// auto-seeds with empty values from the head set.
func mustSet(t *testing.T, b *block.Block, field string, value any) {
	t.Helper()
	require.NoError(t, b.Params.Set(field, value))
}

func TestLinearFlow(t *testing.T) {
	a := newAddOne("a")
	b := newAddOne("b")
	d := New()
	require.NoError(t, d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"}))
	mustSet(t, a, "in_x", 1)

	res, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.Nil(t, res.Paused)

	v, _ := b.Params.Get("out_x")
	require.Equal(t, 3, v, "a(1)=2, b(2)=3")
	require.Equal(t, block.StateSuccessful, a.State)
	require.Equal(t, block.StateSuccessful, b.State)
	require.Empty(t, d.queue)
}

func TestMergeByDestination(t *testing.T) {
	a := newAddOne("a")
	c := newAddOne("c")
	sum := newSum("sum")
	d := New()
	require.NoError(t, d.Connect(a, sum, Connection{SrcField: "out_x", DstField: "in_a"}))
	require.NoError(t, d.Connect(c, sum, Connection{SrcField: "out_x", DstField: "in_b"}))
	mustSet(t, a, "in_x", 1)
	mustSet(t, c, "in_x", 9)

	res, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.Nil(t, res.Paused)

	// a and c are both heads, executed in the same Execute call, and
	// merge into a single queued update for sum before sum ever runs.
	v, _ := sum.Params.Get("out_sum")
	require.Equal(t, 2+10, v)
}

func TestInputBlockPauseAndResume(t *testing.T) {
	a := newAddOne("a")
	confirm := newConfirm("confirm")
	d := New()
	require.NoError(t, d.Connect(a, confirm, Connection{SrcField: "out_x", DstField: "in_x"}))
	mustSet(t, a, "in_x", 1)

	res, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Paused)
	require.Equal(t, "confirm", res.Paused.Name)
	require.Equal(t, block.StateWaiting, confirm.State)

	in, _ := confirm.Params.Get("in_x")
	require.Equal(t, 2, in, "confirm.in_x is merged before it pauses")

	// Simulate a user editing the staged output directly.
	mustSet(t, confirm, "out_x", 99)

	res, err = d.ExecuteAfterInput(context.Background(), confirm)
	require.NoError(t, err)
	require.Nil(t, res.Paused)
	// An input block's state is WAITING on every successful completion,
	// restart or not (spec.md §4.3.4) — it is always ready for more input.
	require.Equal(t, block.StateWaiting, confirm.State)

	out, _ := confirm.Params.Get("out_x")
	require.Equal(t, 99, out, "confirm's no-op Execute must not overwrite the user-set value")
}

// TestFullPauseResumeChain walks a five-block chain (two producers
// feeding an input block feeding two more consumers) through a single
// pause/resume cycle, mirroring how a run seeds, pauses at the input
// block, and then propagates the user's edited value onward.
func TestFullPauseResumeChain(t *testing.T) {
	p0 := newAddOne("p0")
	p1 := newAddOne("p1")
	i2 := newConfirm("i2")
	p3 := newAddOne("p3")
	p4 := newAddOne("p4")

	d := New()
	require.NoError(t, d.Connect(p0, p1, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(p1, i2, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(i2, p3, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(p3, p4, Connection{SrcField: "out_x", DstField: "in_x"}))
	mustSet(t, p0, "in_x", 5)

	res, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Paused)
	require.Equal(t, "i2", res.Paused.Name)

	in, _ := i2.Params.Get("in_x")
	require.Equal(t, 7, in, "p0(5)=6, p1(6)=7")
	p3In, _ := p3.Params.Get("in_x")
	require.Equal(t, 0, p3In, "nothing downstream of the pause has run yet")

	mustSet(t, i2, "out_x", 20)
	res, err = d.ExecuteAfterInput(context.Background(), i2)
	require.NoError(t, err)
	require.Nil(t, res.Paused)

	p3Out, _ := p3.Params.Get("out_x")
	require.Equal(t, 21, p3Out)
	p4Out, _ := p4.Params.Get("out_x")
	require.Equal(t, 22, p4Out)

	require.Equal(t, block.StateSuccessful, p0.State)
	require.Equal(t, block.StateSuccessful, p1.State)
	require.Equal(t, block.StateWaiting, i2.State)
	require.Equal(t, block.StateSuccessful, p3.State)
	require.Equal(t, block.StateSuccessful, p4.State)
}

func TestConnectRejectsCycle(t *testing.T) {
	a := newAddOne("a")
	b := newAddOne("b")
	d := New()
	require.NoError(t, d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"}))

	err := d.Connect(b, a, Connection{SrcField: "out_x", DstField: "in_x"})
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindStructural, gerr.Kind)
}

func TestConnectRejectsSelfLoop(t *testing.T) {
	a := newAddOne("a")
	d := New()
	err := d.Connect(a, a, Connection{SrcField: "out_x", DstField: "in_x"})
	require.Error(t, err)
}

func TestConnectRejectsDisjointIsland(t *testing.T) {
	a := newAddOne("a")
	b := newAddOne("b")
	c := newAddOne("c")
	e := newAddOne("e")
	d := New()
	require.NoError(t, d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"}))

	err := d.Connect(c, e, Connection{SrcField: "out_x", DstField: "in_x"})
	require.Error(t, err, "c/e share no block with the existing a->b edge")
}

func TestConnectRejectsAllowRefsSource(t *testing.T) {
	a := block.New("a", "test.Locked", []*param.Parameter{
		{Name: "out_x", Type: param.TypeInt, AllowRefs: true},
	}, block.NoopBehavior{})
	b := newAddOne("b")
	d := New()
	err := d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"})
	require.Error(t, err)
}

func TestDisconnectRemovesSubscription(t *testing.T) {
	a := newAddOne("a")
	b := newAddOne("b")
	d := New()
	require.NoError(t, d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Disconnect(b))

	// If the subscription the edge installed were still active, setting
	// a's output directly would enqueue a stray update for b.
	mustSet(t, a, "out_x", 5)
	require.Empty(t, d.queue, "a's watcher for the removed edge must no longer enqueue updates for b")
	require.Equal(t, block.StateReady, b.State)
}

// TestDisconnectRejectsCutVertex removes the middle block of a 5-block
// chain, which would split it into a 2-block island and a 2-block
// island; the call must fail and leave every edge and subscription
// intact (spec.md §3 "removing a block must not split the dag").
func TestDisconnectRejectsCutVertex(t *testing.T) {
	p0 := newAddOne("p0")
	p1 := newAddOne("p1")
	mid := newAddOne("mid")
	p3 := newAddOne("p3")
	p4 := newAddOne("p4")

	d := New()
	require.NoError(t, d.Connect(p0, p1, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(p1, mid, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(mid, p3, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(p3, p4, Connection{SrcField: "out_x", DstField: "in_x"}))

	err := d.Disconnect(mid)
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindStructural, gerr.Kind)

	require.Len(t, d.edges, 4, "the rejected disconnect must not mutate the edge list")

	// The edges' subscriptions must still be live.
	mustSet(t, p0, "in_x", 1)
	_, err = d.Execute(context.Background())
	require.NoError(t, err)
	p4Out, _ := p4.Params.Get("out_x")
	require.Equal(t, 6, p4Out, "p0(1)=2,p1(2)=3,mid(3)=4,p3(4)=5,p4(5)=6")
}

func TestExecuteOnEmptyQueueReturnsEmptyKind(t *testing.T) {
	d := New()
	_, err := d.Execute(context.Background())
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindEmpty, gerr.Kind)
}

func TestValidationErrorDoesNotStopDag(t *testing.T) {
	a := newAddOne("a")
	capped := block.New("capped", "test.Capped", []*param.Parameter{
		{Name: "in_x", Type: param.TypeInt, Constraint: &param.Constraint{Range: "lte=10"}},
		{Name: "out_x", Type: param.TypeInt},
	}, addOneBehavior{})
	d := New()
	require.NoError(t, d.Connect(a, capped, Connection{SrcField: "out_x", DstField: "in_x"}))
	// a's output (999+1 = 1000) violates capped.in_x's range constraint.
	mustSet(t, a, "in_x", 999)

	_, err := d.Execute(context.Background())
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindValidation, gerr.Kind)
	require.False(t, d.Stopped(), "a validation fault must not set the dag's cancellation flag")
}

func TestUnclassifiedBlockErrorStopsDag(t *testing.T) {
	boom := errors.New("boom")
	a := newAddOne("a")
	f := newFailing("f", boom)
	d := New()
	require.NoError(t, d.Connect(a, f, Connection{SrcField: "out_x", DstField: "in_x"}))
	mustSet(t, a, "in_x", 1)

	_, err := d.Execute(context.Background())
	require.Error(t, err)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindBlock, gerr.Kind)
	require.True(t, d.Stopped(), "an unclassified block error must set the cancellation flag")
}

func TestGetSortedOrdersTopologically(t *testing.T) {
	a := newAddOne("a")
	b := newAddOne("b")
	c := newAddOne("c")
	d := New()
	require.NoError(t, d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(b, c, Connection{SrcField: "out_x", DstField: "in_x"}))

	sorted, err := d.GetSorted()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, namesOf(sorted))
}

func TestHeadsAndTails(t *testing.T) {
	a := newAddOne("a")
	b := newAddOne("b")
	c := newAddOne("c")
	d := New()
	require.NoError(t, d.Connect(a, b, Connection{SrcField: "out_x", DstField: "in_x"}))
	require.NoError(t, d.Connect(a, c, Connection{SrcField: "out_x", DstField: "in_x"}))

	heads, tails := d.HeadsAndTails()
	require.Equal(t, []string{"a"}, namesOf(heads))
	require.Equal(t, []string{"b", "c"}, namesOf(tails))
}

func namesOf(blocks []*block.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Name
	}
	return out
}
