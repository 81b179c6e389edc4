package graph

import (
	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/param"
)

// Connection pairs one source block's output field with one destination
// block's input field. A single edge between two blocks may carry
// several Connections (spec.md §3: "a Connection is (src_field,
// dst_field); an edge carries one or more").
type Connection struct {
	SrcField string
	DstField string
}

// edge is the Dag's internal record of one Connect() call: a directed
// link from src to dst carrying one or more field Connections, plus the
// Watcher handle needed to unregister it on Disconnect without
// disturbing src's other outgoing edges.
type edge struct {
	src, dst *block.Block
	conns    []Connection
	watcher  *param.Watcher
}
