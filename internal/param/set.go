package param

import "fmt"

// Event describes a single parameter change: the field that changed and
// its new and old values. The owning block's name is filled in by the
// Set's owner (spec.md §4.1: "(block, field, new_value, old_value)").
type Event struct {
	Block string
	Field string
	New   any
	Old   any
}

// Batch is one or more Events delivered to a subscriber atomically. A
// batched Update() call produces exactly one Batch; separate individual
// Set calls each produce their own single-Event Batch (spec.md §4.1).
type Batch []Event

// Subscriber receives a Batch of change events. Subscribers must not
// call Set/Update/Trigger on the same Set reentrantly while being
// invoked (spec.md §4.1 fairness note); the Dag's subscribers enqueue
// instead of recursing.
type Subscriber func(Batch)

type subscription struct {
	fields map[string]bool // empty means "all fields"
	fn     Subscriber
}

// Watcher is a handle to a single Watch registration, returned so a
// caller that needs selective removal (the Dag, on Disconnect) can drop
// exactly one subscription instead of every subscription on the Set.
type Watcher struct {
	sub *subscription
}

// Set is the instance-level container of Parameter values for one block.
// It is not safe for concurrent use by multiple goroutines; the executor
// model is single-threaded cooperative (spec.md §5).
type Set struct {
	blockName string
	defs      map[string]*Parameter
	order     []string // declaration order, for deterministic iteration
	values    map[string]any
	subs      []*subscription
	depth     int // reentrancy guard during delivery
}

// NewSet builds a Set for a block instance named blockName, with the
// given class-level Parameter declarations. Each Parameter's Default is
// installed without triggering any change event; a nil Default on an
// int, float, bool, or string Parameter installs that type's zero value.
func NewSet(blockName string, defs []*Parameter) *Set {
	s := &Set{
		blockName: blockName,
		defs:      make(map[string]*Parameter, len(defs)),
		values:    make(map[string]any, len(defs)),
	}
	for _, d := range defs {
		s.defs[d.Name] = d
		s.order = append(s.order, d.Name)
		v := d.Default
		if v == nil {
			switch d.Type {
			case TypeInt:
				v = 0
			case TypeFloat:
				v = 0.0
			case TypeBool:
				v = false
			case TypeString:
				v = ""
			}
		}
		s.values[d.Name] = v
	}
	return s
}

// Def returns the Parameter declaration for name, if any.
func (s *Set) Def(name string) (*Parameter, bool) {
	d, ok := s.defs[name]
	return d, ok
}

// Names returns all declared parameter names in declaration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the current value of name.
func (s *Set) Get(name string) (any, error) {
	if _, ok := s.defs[name]; !ok {
		return nil, fmt.Errorf("no such parameter %q", name)
	}
	return s.values[name], nil
}

// MustGet panics if name is not declared; used by blocks that know their
// own schema and want terser call sites than Get's error return.
func (s *Set) MustGet(name string) any {
	v, err := s.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set assigns a single field, validating it and delivering a one-event
// Batch to subscribers on success. It fails with a *ValidationError
// without changing the stored value or notifying anyone.
func (s *Set) Set(name string, value any) error {
	return s.Update(map[string]any{name: value})
}

// Update assigns all of values atomically: every field is validated
// first, and if any fails the whole call fails with no side effects.
// On success, one Batch containing every changed (or explicitly
// unchanged-but-set) field is delivered synchronously to subscribers
// before Update returns (spec.md §4.1 "batched update").
func (s *Set) Update(values map[string]any) error {
	if s.depth > 0 {
		return fmt.Errorf("parameter set for %q: reentrant Update during event delivery", s.blockName)
	}
	if len(values) == 0 {
		return nil
	}

	for name, v := range values {
		def, ok := s.defs[name]
		if !ok {
			return fmt.Errorf("no such parameter %q", name)
		}
		if err := def.Validate(v); err != nil {
			return err
		}
	}

	batch := make(Batch, 0, len(values))
	for _, name := range s.order {
		v, present := values[name]
		if !present {
			continue
		}
		old := s.values[name]
		s.values[name] = v
		batch = append(batch, Event{Block: s.blockName, Field: name, New: v, Old: old})
	}

	s.deliver(batch)
	return nil
}

// Trigger re-emits a change event for name using its current value as
// both New and Old, without requiring the value to actually change
// (spec.md §4.1 "a block may explicitly trigger(field, ...)").
func (s *Set) Trigger(names ...string) error {
	if s.depth > 0 {
		return fmt.Errorf("parameter set for %q: reentrant Trigger during event delivery", s.blockName)
	}
	batch := make(Batch, 0, len(names))
	for _, name := range names {
		if _, ok := s.defs[name]; !ok {
			return fmt.Errorf("no such parameter %q", name)
		}
		v := s.values[name]
		batch = append(batch, Event{Block: s.blockName, Field: name, New: v, Old: v})
	}
	s.deliver(batch)
	return nil
}

// Watch registers fn to be called with a Batch whenever any field named
// in fields changes via Set/Update/Trigger. An empty fields list watches
// every field. The returned Watcher may be passed to Unwatch to remove
// just this one registration.
func (s *Set) Watch(fields []string, fn Subscriber) *Watcher {
	filter := make(map[string]bool, len(fields))
	for _, f := range fields {
		filter[f] = true
	}
	sub := &subscription{fields: filter, fn: fn}
	s.subs = append(s.subs, sub)
	return &Watcher{sub: sub}
}

// Unwatch removes exactly the subscription w refers to, if still present.
func (s *Set) Unwatch(w *Watcher) {
	if w == nil {
		return
	}
	for i, sub := range s.subs {
		if sub == w.sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// UnwatchAll removes every subscription on this Set.
func (s *Set) UnwatchAll() {
	s.subs = nil
}

func (s *Set) deliver(batch Batch) {
	if len(batch) == 0 {
		return
	}
	s.depth++
	defer func() { s.depth-- }()

	for _, sub := range s.subs {
		var filtered Batch
		if len(sub.fields) == 0 {
			filtered = batch
		} else {
			for _, e := range batch {
				if sub.fields[e.Field] {
					filtered = append(filtered, e)
				}
			}
		}
		if len(filtered) > 0 {
			sub.fn(filtered)
		}
	}
}

// Snapshot returns a copy of all current values, keyed by parameter name.
func (s *Set) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
