package chain

import (
	"maps"
	"slices"
)

// Source is anything named results can be read from: a Context or a Result.
type Source interface {
	lookup(k Key) (any, bool)
}

type entry struct {
	value any
	seq   uint64
}

// Context is the immutable snapshot threaded through a chain: named results, the
// conversation so far, and the configuration for the next step. Every update returns a
// new Context; a Context that has been handed out never changes.
type Context struct {
	values  map[Key]entry
	history []Message
	config  ChatConfig
	seq     uint64
}

// Root returns an empty Context carrying cfg.
func Root(cfg ChatConfig) Context {
	return Context{values: map[Key]entry{}, config: cfg}
}

func (c Context) lookup(k Key) (any, bool) {
	e, ok := c.values[k]
	return e.value, ok
}

// Get returns the value stored under l, or an error wrapping ErrNotFound.
func Get[T any](src Source, l Label[T]) (T, error) {
	var zero T
	if src == nil {
		return zero, notFound(l.Key())
	}
	raw, ok := src.lookup(l.Key())
	if !ok {
		return zero, notFound(l.Key())
	}
	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, notFound(l.Key())
	}
	return v, nil
}

// Lookup is the non-failing form of Get.
func Lookup[T any](src Source, l Label[T]) (T, bool) {
	v, err := Get(src, l)
	return v, err == nil
}

func (c Context) Has(k Keyed) bool {
	_, ok := c.values[k.Key()]
	return ok
}

func (c Context) Config() ChatConfig { return c.config }

// History returns a copy of the transcript in append order.
func (c Context) History() []Message { return slices.Clone(c.history) }

// Values returns a copy of the named results.
func (c Context) Values() map[Key]any {
	out := make(map[Key]any, len(c.values))
	for k, e := range c.values {
		out[k] = e.value
	}
	return out
}

// visibleByName maps each result name to its most recently stored value.
func (c Context) visibleByName() map[string]any {
	out := make(map[string]any, len(c.values))
	seqs := make(map[string]uint64, len(c.values))
	for k, e := range c.values {
		if s, ok := seqs[k.Name]; ok && s > e.seq {
			continue
		}
		seqs[k.Name] = e.seq
		out[k.Name] = e.value
	}
	return out
}

func (c Context) plus(k Key, v any) Context {
	values := make(map[Key]entry, len(c.values)+1)
	maps.Copy(values, c.values)
	seq := c.seq + 1
	values[k] = entry{value: v, seq: seq}
	return Context{values: values, history: c.history, config: c.config, seq: seq}
}

// With returns a new Context with value stored under l.
func With[T any](c Context, l Label[T], value T) Context {
	return c.plus(l.Key(), value)
}

func (c Context) appendHistory(msgs ...Message) Context {
	n := len(c.history)
	history := append(c.history[:n:n], msgs...)
	return Context{values: c.values, history: history, config: c.config, seq: c.seq}
}

// Fork returns a Context whose mapping and history are independent copies, for handing
// to a concurrently running branch.
func (c Context) Fork() Context {
	values := make(map[Key]entry, len(c.values))
	maps.Copy(values, c.values)
	return Context{
		values:  values,
		history: slices.Clone(c.history),
		config:  c.config.With(),
		seq:     c.seq,
	}
}

func (c Context) without(keys ...Key) Context {
	var values map[Key]entry
	for _, k := range keys {
		if _, ok := c.values[k]; !ok {
			continue
		}
		if values == nil {
			values = maps.Clone(c.values)
		}
		delete(values, k)
	}
	if values == nil {
		return c
	}
	return Context{values: values, history: c.history, config: c.config, seq: c.seq}
}
