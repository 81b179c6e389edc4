package graph

import (
	"context"
	"errors"
	"sort"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/logger"
	"github.com/dagflow/dagflow/internal/param"
	"github.com/google/uuid"
)

// pendingUpdate is one FIFO-queue entry: a merged set of field values
// destined for dst. restart is set only by ExecuteAfterInput's prepended
// record, and means "call Execute only, skipping Prepare, and never
// pause on this record" (spec.md §4.3.3 step 4d/4e) — it is distinct
// from an ordinary head-seed record, which also carries empty values
// but is not a restart.
type pendingUpdate struct {
	dst     *block.Block
	values  map[string]any
	restart bool
}

// ExecuteResult reports the outcome of a completed Execute /
// ExecuteAfterInput call. Paused is non-nil when the run stopped
// because an input block consumed fresh values and is waiting for the
// caller to confirm or edit them (spec.md §5).
type ExecuteResult struct {
	Paused *block.Block
}

// Dag owns a set of blocks, established implicitly by the edges
// connecting them, and a FIFO queue of pending field updates merged by
// destination block (spec.md §3, §5).
type Dag struct {
	Site, Title, Doc, Author string
	ShowDoc                  bool

	// Logger receives block state transitions, pauses, and errors at
	// Debug/Info/Error as appropriate (spec.md §4.3.3's execution trace).
	// Purely observational: never consulted for engine semantics.
	Logger logger.Logger

	edges      []*edge
	queue      []*pendingUpdate
	stopped    bool
	newContext func() ExecutionContext
}

// Option configures a Dag at construction time.
type Option func(*Dag)

func WithSite(site string) Option   { return func(d *Dag) { d.Site = site } }
func WithTitle(title string) Option { return func(d *Dag) { d.Title = title } }
func WithDoc(doc string) Option     { return func(d *Dag) { d.Doc = doc } }
func WithAuthor(author string) Option {
	return func(d *Dag) { d.Author = author }
}
func WithShowDoc(show bool) Option { return func(d *Dag) { d.ShowDoc = show } }

// WithLogger sets the Dag's logging hook; unset, it logs nothing.
func WithLogger(l logger.Logger) Option { return func(d *Dag) { d.Logger = l } }

// WithExecutionContext overrides the ExecutionContext built for every
// block execution; the default wraps defaultContext with no retries.
func WithExecutionContext(factory func() ExecutionContext) Option {
	return func(d *Dag) { d.newContext = factory }
}

// UseExecutionContext swaps the ExecutionContext factory a Dag already
// in hand will use for future Execute/ExecuteAfterInput calls — the
// `WithExecutionContext` Option's counterpart for dags built elsewhere
// (e.g. loaded through the library registry, which only exposes a
// *Dag, not its constructor call).
func (d *Dag) UseExecutionContext(factory func() ExecutionContext) {
	d.newContext = factory
}

// New builds an empty Dag.
func New(opts ...Option) *Dag {
	d := &Dag{
		newContext: func() ExecutionContext { return defaultContext{} },
		Logger:     noopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// noopLogger is the Dag's default Logger: discards everything, so a Dag
// built without WithLogger never needs a nil check at a call site.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any)  {}
func (noopLogger) Info(string, ...any)   {}
func (noopLogger) Warn(string, ...any)   {}
func (noopLogger) Error(string, ...any)  {}
func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

func (l noopLogger) With(...any) logger.Logger      { return l }
func (l noopLogger) WithGroup(string) logger.Logger { return l }

func (d *Dag) hasBlock(b *block.Block) bool {
	for _, e := range d.edges {
		if e.src == b || e.dst == b {
			return true
		}
	}
	return false
}

func (d *Dag) blockNamed(name string) *block.Block {
	for _, e := range d.edges {
		if e.src.Name == name {
			return e.src
		}
		if e.dst.Name == name {
			return e.dst
		}
	}
	return nil
}

// Connect wires src's output fields to dst's input fields over one or
// more Connections, validating structural invariants in the same order
// the reference dag builder does: self-connection, cycles, duplicate
// names, weak connectivity, duplicate pairs, and per-field reference
// rules (spec.md §3, §5's structural-error list).
func (d *Dag) Connect(src, dst *block.Block, conns ...Connection) error {
	if len(conns) == 0 {
		return structuralErr("connect %s -> %s: at least one connection is required", src.Name, dst.Name)
	}
	if src == dst || src.Name == dst.Name {
		return structuralErr("block %s cannot connect to itself", src.Name)
	}

	trial := append(append([]*edge(nil), d.edges...), &edge{src: src, dst: dst, conns: conns})
	if hasCycle(trial) {
		return structuralErr("connect %s -> %s would create a cycle", src.Name, dst.Name)
	}

	if len(d.edges) > 0 {
		if existing := d.blockNamed(src.Name); existing != nil && existing != src {
			return structuralErr("a different block named %q is already in the dag", src.Name)
		}
		if existing := d.blockNamed(dst.Name); existing != nil && existing != dst {
			return structuralErr("a different block named %q is already in the dag", dst.Name)
		}
		if !d.hasBlock(src) && !d.hasBlock(dst) {
			return structuralErr("connect %s -> %s: neither block is part of this dag yet", src.Name, dst.Name)
		}
	}

	for _, e := range d.edges {
		if e.src == src && e.dst == dst {
			return structuralErr("%s -> %s are already connected", src.Name, dst.Name)
		}
	}

	for _, c := range conns {
		srcDef, ok := src.Params.Def(c.SrcField)
		if !ok || !srcDef.IsOutput() {
			return structuralErr("%s: %q is not a declared output field", src.Name, c.SrcField)
		}
		if srcDef.AllowRefs {
			return structuralErr("%s: %q may not be used as a connection source", src.Name, c.SrcField)
		}
		dstDef, ok := dst.Params.Def(c.DstField)
		if !ok || !dstDef.IsInput() {
			return structuralErr("%s: %q is not a declared input field", dst.Name, c.DstField)
		}
	}

	fieldToDst := make(map[string]string, len(conns))
	watchFields := make([]string, 0, len(conns))
	for _, c := range conns {
		fieldToDst[c.SrcField] = c.DstField
		watchFields = append(watchFields, c.SrcField)
	}

	e := &edge{src: src, dst: dst, conns: conns}
	e.watcher = src.Params.Watch(watchFields, func(batch param.Batch) {
		values := make(map[string]any, len(batch))
		for _, ev := range batch {
			if dstField, ok := fieldToDst[ev.Field]; ok {
				values[dstField] = ev.New
			}
		}
		if len(values) > 0 {
			d.enqueue(dst, values)
		}
	})

	d.edges = append(d.edges, e)
	return nil
}

// Disconnect removes every edge touching b, in either direction, and
// unregisters the subscriber each of those edges installed (spec.md §3
// "disconnect removes all edges touching the block"). It first checks
// the residual edge set for weak connectedness, failing without
// mutating anything if removing b would split the dag into more than
// one component (spec.md §3, §4.3.1).
func (d *Dag) Disconnect(b *block.Block) error {
	residual := make([]*edge, 0, len(d.edges))
	for _, e := range d.edges {
		if e.src != b && e.dst != b {
			residual = append(residual, e)
		}
	}
	if !weaklyConnected(residual) {
		return structuralErr("disconnecting %s would split the dag into more than one component", b.Name)
	}

	kept := d.edges[:0:0]
	for _, e := range d.edges {
		if e.src == b || e.dst == b {
			e.src.Params.Unwatch(e.watcher)
			continue
		}
		kept = append(kept, e)
	}
	d.edges = kept
	return nil
}

// enqueue merges values into the first pending update already queued
// for dst, or appends a new one — the merge-by-destination FIFO rule
// (spec.md §4.3.2).
func (d *Dag) enqueue(dst *block.Block, values map[string]any) {
	for _, item := range d.queue {
		if item.dst == dst {
			for k, v := range values {
				item.values[k] = v
			}
			return
		}
	}
	d.queue = append(d.queue, &pendingUpdate{dst: dst, values: values})
}

var errEmptyQueue = errors.New("nothing queued to execute")

// headBlocks returns the blocks with no incoming edges, ordered with
// every wait_for_input=false head before every wait_for_input=true
// head, alphabetically within each group (spec.md §4.3.3 step 2).
func (d *Dag) headBlocks() []*block.Block {
	heads, _ := d.HeadsAndTails()
	sort.SliceStable(heads, func(i, j int) bool {
		if heads[i].WaitForInput != heads[j].WaitForInput {
			return !heads[i].WaitForInput
		}
		return heads[i].Name < heads[j].Name
	})
	return heads
}

// Execute clears the pending-update queue, reseeds it from the head
// set, and drains it — running each destination block's Prepare/
// Execute hooks through the Dag's ExecutionContext — until the queue
// empties, an input block pauses for confirmation, or an error occurs
// (spec.md §4.3.3). A validation fault halts this call and is returned
// to the caller, but — unlike a block error or a cancellation — never
// sets the Dag's cancellation flag, so a later Execute call still runs cleanly
// (spec.md §7).
func (d *Dag) Execute(ctx context.Context) (*ExecuteResult, error) {
	runLog := d.Logger.With("run_id", uuid.NewString())
	d.queue = nil
	for _, h := range d.headBlocks() {
		d.queue = append(d.queue, &pendingUpdate{dst: h, values: map[string]any{}})
	}
	if len(d.queue) == 0 {
		return nil, &Error{Kind: KindEmpty, Err: errEmptyQueue}
	}
	runLog.Debug("execute starting", "heads", len(d.queue))
	return d.drain(ctx, runLog)
}

// ExecuteAfterInput resumes a paused input block: b must be the block
// the previous Execute call returned as Paused. It prepends a restart
// record for b — which skips Prepare and never pauses again on b — then
// drains the queue exactly like Execute, without touching the head set
// (spec.md §4.3.3 "execute_after_input").
func (d *Dag) ExecuteAfterInput(ctx context.Context, b *block.Block) (*ExecuteResult, error) {
	if !b.WaitForInput {
		return nil, structuralErr("%s: execute_after_input requires an input block", b.Name)
	}
	runLog := d.Logger.With("run_id", uuid.NewString())
	runLog.Debug("resuming after input", "block", b.Name)
	d.queue = append([]*pendingUpdate{{dst: b, values: map[string]any{}, restart: true}}, d.queue...)
	return d.drain(ctx, runLog)
}

// drain pops records off the FIFO until it empties, a block pauses, or
// an error occurs. It implements spec.md §4.3.3 step 4's dispatch:
// restart records call Execute only; a fresh input-block record calls
// Prepare only and pauses; everything else calls Prepare then Execute.
func (d *Dag) drain(ctx context.Context, log logger.Logger) (*ExecuteResult, error) {
	for len(d.queue) > 0 {
		canExecute := !d.stopped

		item := d.queue[0]
		d.queue = d.queue[1:]

		if err := item.dst.Params.Update(item.values); err != nil {
			item.dst.State = block.StateError
			log.Error("validation failed", "block", item.dst.Name, "err", err)
			return nil, &Error{Kind: KindValidation, BlockName: item.dst.Name, Err: err}
		}

		if !canExecute {
			log.Debug("skipping execution, dag stopped", "block", item.dst.Name)
			continue
		}

		isInputBlock := item.dst.WaitForInput
		pauses := isInputBlock && !item.restart

		log.Debug("executing block", "block", item.dst.Name, "state", item.dst.State.String())

		execCtx := d.newContext()
		fn := func(innerCtx context.Context) error {
			switch {
			case item.restart:
				return item.dst.Behavior.Execute(innerCtx, item.dst.Params)
			case pauses:
				return item.dst.Behavior.Prepare(innerCtx, item.dst.Params)
			default:
				if err := item.dst.Behavior.Prepare(innerCtx, item.dst.Params); err != nil {
					return err
				}
				return item.dst.Behavior.Execute(innerCtx, item.dst.Params)
			}
		}

		cancel, err := execCtx.Run(ctx, item.dst, isInputBlock, fn)
		if cancel {
			d.stopped = true
		}
		if err != nil {
			log.Error("block execution failed", "block", item.dst.Name, "err", err)
			return nil, err
		}

		log.Debug("block finished", "block", item.dst.Name, "state", item.dst.State.String())

		if pauses {
			log.Info("block paused for input", "block", item.dst.Name)
			return &ExecuteResult{Paused: item.dst}, nil
		}
	}

	return &ExecuteResult{}, nil
}

// Stop sets the cancellation flag: Execute keeps draining the queue
// (applying merged values) but stops invoking any block's hooks.
func (d *Dag) Stop() { d.stopped = true }

// Unstop clears the cancellation flag.
func (d *Dag) Unstop() { d.stopped = false }

// Stopped reports the current cancellation flag.
func (d *Dag) Stopped() bool { return d.stopped }

// BlockByName returns the block named name, if it participates in any edge.
func (d *Dag) BlockByName(name string) (*block.Block, bool) {
	b := d.blockNamed(name)
	return b, b != nil
}

// Blocks returns every block participating in the Dag, ordered by name.
func (d *Dag) Blocks() []*block.Block {
	seen := make(map[string]*block.Block)
	for _, e := range d.edges {
		seen[e.src.Name] = e.src
		seen[e.dst.Name] = e.dst
	}
	out := make([]*block.Block, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EdgeView exposes one edge's src/dst and its field Connections, for
// the serialize package's dump walk.
type EdgeView struct {
	Src, Dst *block.Block
	Conns    []Connection
}

// Edges returns every edge in Connect() insertion order.
func (d *Dag) Edges() []EdgeView {
	out := make([]EdgeView, len(d.edges))
	for i, e := range d.edges {
		out[i] = EdgeView{Src: e.src, Dst: e.dst, Conns: append([]Connection(nil), e.conns...)}
	}
	return out
}

// GetSorted returns the Dag's blocks in topological order, or a
// structural error if a cycle is present.
func (d *Dag) GetSorted() ([]*block.Block, error) {
	sorted, remaining := topoSort(d.edges)
	if len(remaining) > 0 {
		names := make([]string, len(remaining))
		for i, b := range remaining {
			names[i] = b.Name
		}
		return nil, structuralErr("cycle detected among blocks %v", names)
	}
	return sorted, nil
}

// HasCycle reports whether the Dag's current edges contain a cycle.
func (d *Dag) HasCycle() bool { return hasCycle(d.edges) }

// HeadsAndTails returns the blocks with no incoming edges (heads) and
// those with no outgoing edges (tails).
func (d *Dag) HeadsAndTails() (heads, tails []*block.Block) {
	hasIncoming := map[string]bool{}
	hasOutgoing := map[string]bool{}
	for _, e := range d.edges {
		hasOutgoing[e.src.Name] = true
		hasIncoming[e.dst.Name] = true
	}
	for _, b := range d.Blocks() {
		if !hasIncoming[b.Name] {
			heads = append(heads, b)
		}
		if !hasOutgoing[b.Name] {
			tails = append(tails, b)
		}
	}
	return heads, tails
}

