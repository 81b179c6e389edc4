// Package library implements the block/dag factory registry: key-based
// discovery of block and dag classes, lazy resolution, and the plugin
// mechanism dump/load and the CLI rely on (spec.md §4.4, §6).
package library

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/graph"
	"github.com/samber/lo"
)

// BlockFactory builds a fresh, unconnected Block instance for a key,
// applying any dumped constructor args (spec.md §4.5's "args holds the
// block constructor's plain (non-Parameter) argument values"). The
// dumped "name" entry arrives in args like any other key, and the
// factory reads it to name the block; keys it doesn't recognize are
// ignored.
type BlockFactory func(args map[string]any) *block.Block

// DagFactory builds a fresh, empty Dag for a key.
type DagFactory func() *graph.Dag

// Info describes one discoverable block or dag class, the way a
// provider advertises it before it is ever instantiated.
type Info struct {
	Key string
	Doc string
}

// Provider is a source of block/dag classes, registered by key under a
// named group at package init time. Go has no runtime plugin loader, so
// discovery is explicit registration rather than host-environment
// enumeration (spec.md §6): a package calls RegisterProvider from its
// own init(), and Collect* walks every provider registered under a
// group the way database/sql.Register-style registries work.
type Provider interface {
	Blocks() []Info
	Dags() []Info
	BlockFactory(key string) BlockFactory
	DagFactory(key string) DagFactory
}

var (
	providersMu sync.Mutex
	providers   = map[string][]Provider{}
)

// RegisterProvider adds p to the named group, for a later CollectBlocks/
// CollectDags call to discover.
func RegisterProvider(group string, p Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[group] = append(providers[group], p)
}

// Library holds two key→factory tables, each entry nil until resolved
// (spec.md §4.4 "classes are not imported yet").
type Library struct {
	blockOwner     map[string]Provider
	blockFactories map[string]BlockFactory
	blockDocs      map[string]string

	dagOwner     map[string]Provider
	dagFactories map[string]DagFactory
	dagDocs      map[string]string
}

// New builds an empty Library.
func New() *Library {
	return &Library{
		blockOwner:     map[string]Provider{},
		blockFactories: map[string]BlockFactory{},
		blockDocs:      map[string]string{},
		dagOwner:       map[string]Provider{},
		dagFactories:   map[string]DagFactory{},
		dagDocs:        map[string]string{},
	}
}

func structuralErr(format string, args ...any) *graph.Error {
	return &graph.Error{Kind: graph.KindStructural, Err: fmt.Errorf(format, args...)}
}

// CollectBlocks discovers every block key every provider registered
// under group advertises, populating the library with nil (unresolved)
// factories. A key already known from this or any prior group is a
// structural error (spec.md §4.4's duplicate-key contract).
func (l *Library) CollectBlocks(group string) error {
	providersMu.Lock()
	groupProviders := append([]Provider(nil), providers[group]...)
	providersMu.Unlock()

	for _, p := range groupProviders {
		for _, info := range p.Blocks() {
			if _, exists := l.blockOwner[info.Key]; exists {
				return structuralErr("duplicate block key %q", info.Key)
			}
			l.blockOwner[info.Key] = p
			l.blockFactories[info.Key] = nil
			l.blockDocs[info.Key] = info.Doc
		}
	}
	return nil
}

// CollectDags is CollectBlocks' dag-key counterpart.
func (l *Library) CollectDags(group string) error {
	providersMu.Lock()
	groupProviders := append([]Provider(nil), providers[group]...)
	providersMu.Unlock()

	for _, p := range groupProviders {
		for _, info := range p.Dags() {
			if _, exists := l.dagOwner[info.Key]; exists {
				return structuralErr("duplicate dag key %q", info.Key)
			}
			l.dagOwner[info.Key] = p
			l.dagFactories[info.Key] = nil
			l.dagDocs[info.Key] = info.Doc
		}
	}
	return nil
}

// AddBlock inserts a local, already-resolved entry, the way a caller
// registers a block class without going through provider discovery.
func (l *Library) AddBlock(key string, factory BlockFactory) error {
	if _, exists := l.blockFactories[key]; exists {
		return structuralErr("block key %q is already registered", key)
	}
	l.blockFactories[key] = factory
	return nil
}

// AddDag is AddBlock's dag counterpart.
func (l *Library) AddDag(key string, factory DagFactory) error {
	if _, exists := l.dagFactories[key]; exists {
		return structuralErr("dag key %q is already registered", key)
	}
	l.dagFactories[key] = factory
	return nil
}

// GetBlock resolves key to a fresh Block, lazily asking the owning
// provider for its factory on first use and caching the result, then
// applies args (typically a dumped block entry's saved constructor
// args). The returned block's ClassKey is stamped with key so a later
// dump emits the same key (spec.md §4.4).
func (l *Library) GetBlock(key string, args map[string]any) (*block.Block, error) {
	factory, ok := l.blockFactories[key]
	if !ok {
		return nil, structuralErr("no such block key %q", key)
	}
	if factory == nil {
		owner, ok := l.blockOwner[key]
		if !ok {
			return nil, structuralErr("block key %q has no resolvable provider", key)
		}
		factory = owner.BlockFactory(key)
		if factory == nil {
			return nil, structuralErr("provider could not resolve block key %q", key)
		}
		l.blockFactories[key] = factory
	}
	b := factory(args)
	b.ClassKey = key
	return b, nil
}

// GetDag is GetBlock's dag counterpart.
func (l *Library) GetDag(key string) (*graph.Dag, error) {
	factory, ok := l.dagFactories[key]
	if !ok {
		return nil, structuralErr("no such dag key %q", key)
	}
	if factory == nil {
		owner, ok := l.dagOwner[key]
		if !ok {
			return nil, structuralErr("dag key %q has no resolvable provider", key)
		}
		factory = owner.DagFactory(key)
		if factory == nil {
			return nil, structuralErr("provider could not resolve dag key %q", key)
		}
		l.dagFactories[key] = factory
	}
	return factory(), nil
}

// ListBlocks returns every known block key whose name ends with suffix
// (empty suffix matches all), sorted for deterministic CLI output.
func (l *Library) ListBlocks(suffix string) []Info {
	return filterAndSort(l.blockDocsOrFallback(), suffix)
}

// ListDags is ListBlocks' dag counterpart.
func (l *Library) ListDags(suffix string) []Info {
	return filterAndSort(l.dagDocsOrFallback(), suffix)
}

func (l *Library) blockDocsOrFallback() map[string]string {
	out := make(map[string]string, len(l.blockFactories))
	for k := range l.blockFactories {
		out[k] = l.blockDocs[k]
	}
	return out
}

func (l *Library) dagDocsOrFallback() map[string]string {
	out := make(map[string]string, len(l.dagFactories))
	for k := range l.dagFactories {
		out[k] = l.dagDocs[k]
	}
	return out
}

func filterAndSort(docs map[string]string, suffix string) []Info {
	keys := lo.Filter(lo.Keys(docs), func(k string, _ int) bool {
		return suffix == "" || strings.HasSuffix(k, suffix)
	})
	sort.Strings(keys)
	return lo.Map(keys, func(k string, _ int) Info {
		return Info{Key: k, Doc: docs[k]}
	})
}
