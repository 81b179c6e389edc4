// Package serialize implements Dump/Load: converting a *graph.Dag to a
// plain Tree and reconstructing it through the library registry
// (spec.md §4.5, §6).
package serialize

import (
	"fmt"
	"sort"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/graph"
	"github.com/dagflow/dagflow/internal/library"
	"github.com/samber/lo"
)

// DagInfo is the dag-level metadata carried by a Tree (spec.md §4.5's
// "dag: {type, site, title, doc}").
type DagInfo struct {
	Type  string `json:"type,omitempty"`
	Site  string `json:"site,omitempty"`
	Title string `json:"title,omitempty"`
	Doc   string `json:"doc,omitempty"`
}

// BlockEntry is one dumped block instance: its registry key, a
// dump-local instance index, and its constructor args.
type BlockEntry struct {
	Block    string         `json:"block"`
	Instance int            `json:"instance"`
	Args     map[string]any `json:"args"`
}

// ConnArg is one field pairing within a dumped connection.
type ConnArg struct {
	SrcField string `json:"src_field"`
	DstField string `json:"dst_field"`
}

// ConnectionEntry is one dumped edge: source/destination instance
// indices (into Tree.Blocks) plus its field Connections.
type ConnectionEntry struct {
	Src      int       `json:"src"`
	Dst      int       `json:"dst"`
	ConnArgs []ConnArg `json:"conn_args"`
}

// Tree is the plain, JSON-friendly shape spec.md §4.5 describes.
type Tree struct {
	Dag         DagInfo           `json:"dag"`
	Blocks      []BlockEntry      `json:"blocks"`
	Connections []ConnectionEntry `json:"connections"`
}

// Dump walks d's blocks and edges into a Tree. Block and connection
// order is the Dag's own deterministic order (graph.Blocks/Edges sort
// by name and preserve Connect() order respectively), so repeated dumps
// of an unchanged Dag are byte-identical (spec.md testable property 8.7).
func Dump(d *graph.Dag) Tree {
	blocks := d.Blocks()
	instanceOf := make(map[string]int, len(blocks))

	entries := make([]BlockEntry, len(blocks))
	for i, b := range blocks {
		instanceOf[b.Name] = i
		entries[i] = BlockEntry{
			Block:    b.ClassKey,
			Instance: i,
			Args:     describeArgs(b),
		}
	}

	edges := d.Edges()
	conns := make([]ConnectionEntry, len(edges))
	for i, e := range edges {
		connArgs := make([]ConnArg, len(e.Conns))
		for j, c := range e.Conns {
			connArgs[j] = ConnArg{SrcField: c.SrcField, DstField: c.DstField}
		}
		conns[i] = ConnectionEntry{
			Src:      instanceOf[e.Src.Name],
			Dst:      instanceOf[e.Dst.Name],
			ConnArgs: connArgs,
		}
	}

	return Tree{
		Dag: DagInfo{
			Type:  "dag",
			Site:  d.Site,
			Title: d.Title,
			Doc:   d.Doc,
		},
		Blocks:      entries,
		Connections: conns,
	}
}

// describeArgs returns a block's constructor args: {"name": b.Name} plus
// whatever its Behavior contributes via ArgsDescriber (spec.md §9's
// recommendation to avoid reflecting over the constructor's declared
// parameter list). Keys are not otherwise inspected or typed, matching
// "args holds the block constructor's plain (non-Parameter) argument
// values" (spec.md §4.5).
func describeArgs(b *block.Block) map[string]any {
	args := map[string]any{"name": b.Name}
	if describer, ok := b.Behavior.(block.ArgsDescriber); ok {
		for k, v := range describer.DescribeArgs() {
			args[k] = v
		}
	}
	return args
}

// SortedArgKeys returns a block entry's argument keys in deterministic
// order, for callers that render a Tree's args reproducibly (e.g. a
// debug-print path, or a test asserting dump determinism) without
// depending on Go map iteration order.
func SortedArgKeys(args map[string]any) []string {
	keys := lo.Keys(args)
	sort.Strings(keys)
	return keys
}

// Load reconstructs a Dag from t, resolving each block through lib and
// re-running Connect for every dumped edge (spec.md §4.5 "load_dag").
func Load(t Tree, lib *library.Library) (*graph.Dag, error) {
	instances := make([]*block.Block, len(t.Blocks))
	for i, entry := range t.Blocks {
		b, err := lib.GetBlock(entry.Block, entry.Args)
		if err != nil {
			return nil, fmt.Errorf("serialize: load: instance %d: %w", i, err)
		}
		instances[i] = b
	}

	d := graph.New(
		graph.WithSite(t.Dag.Site),
		graph.WithTitle(t.Dag.Title),
		graph.WithDoc(t.Dag.Doc),
	)

	for _, c := range t.Connections {
		if c.Src < 0 || c.Src >= len(instances) || c.Dst < 0 || c.Dst >= len(instances) {
			return nil, fmt.Errorf("serialize: load: connection references out-of-range instance (%d -> %d)", c.Src, c.Dst)
		}
		conns := make([]graph.Connection, len(c.ConnArgs))
		for i, a := range c.ConnArgs {
			conns[i] = graph.Connection{SrcField: a.SrcField, DstField: a.DstField}
		}
		if err := d.Connect(instances[c.Src], instances[c.Dst], conns...); err != nil {
			return nil, fmt.Errorf("serialize: load: connecting instance %d -> %d: %w", c.Src, c.Dst, err)
		}
	}

	return d, nil
}
