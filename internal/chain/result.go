package chain

import (
	"cmp"
	"encoding/json"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Result is the read-only outcome of a run: the final named results plus the ledger.
type Result struct {
	runID   uuid.UUID
	final   Context
	records []CallRecord
}

func newResult(runID uuid.UUID, final Context, records []CallRecord) *Result {
	return &Result{runID: runID, final: final, records: records}
}

func (r *Result) lookup(k Key) (any, bool) { return r.final.lookup(k) }

func (r *Result) RunID() uuid.UUID { return r.runID }

func (r *Result) Has(k Keyed) bool { return r.final.Has(k) }

// HasError reports whether any ledger entry for k failed.
func (r *Result) HasError(k Keyed) bool { return r.Error(k) != nil }

// Error returns the most recent failure recorded for k, or nil.
func (r *Result) Error(k Keyed) *StepError {
	key := k.Key()
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Label == key {
			if err := r.records[i].Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Errors maps each failed label to its most recent failure.
func (r *Result) Errors() map[Key]*StepError {
	out := map[Key]*StepError{}
	for _, rec := range r.records {
		if err := rec.Err(); err != nil {
			out[rec.Label] = err
		}
	}
	return out
}

func (r *Result) Values() map[Key]any { return r.final.Values() }

// ValuesByName returns the results keyed by name. When two labels share a name the
// later stored value wins.
func (r *Result) ValuesByName() map[string]any { return r.final.visibleByName() }

// Labels returns the stored keys sorted by name, then type.
func (r *Result) Labels() []Key {
	keys := slices.Collect(maps.Keys(r.final.values))
	slices.SortFunc(keys, func(a, b Key) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.String(), b.String())
	})
	return keys
}

// Ledger returns the call records in append order.
func (r *Result) Ledger() []CallRecord { return slices.Clone(r.records) }

// History returns the conversation as of the end of the run.
func (r *Result) History() []Message { return r.final.History() }

// Usage sums token usage over every successful call.
func (r *Result) Usage() Usage {
	var u Usage
	for _, rec := range r.records {
		u = u.Add(rec.Usage())
	}
	return u
}

// Completions returns the completion text of every successful call, in ledger order.
func (r *Result) Completions() []string {
	var out []string
	for _, rec := range r.records {
		if s, ok := rec.Completion(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Slice narrows the result to the given labels and the ledger entries recorded for them.
func (r *Result) Slice(labels ...Keyed) *Result {
	want := make(map[Key]bool, len(labels))
	for _, l := range labels {
		want[l.Key()] = true
	}
	values := make(map[Key]entry, len(want))
	for k, e := range r.final.values {
		if want[k] {
			values[k] = e
		}
	}
	var records []CallRecord
	for _, rec := range r.records {
		if want[rec.Label] {
			records = append(records, rec)
		}
	}
	final := Context{values: values, history: r.final.history, config: r.final.config, seq: r.final.seq}
	return newResult(r.runID, final, records)
}

// MarshalJSON renders the run's outcome. Identifiers and timestamps are left out so two
// runs of the same chain against the same replies encode identically; use RunID for the
// run's identity.
func (r *Result) MarshalJSON() ([]byte, error) {
	errs := map[string]string{}
	for k, e := range r.Errors() {
		errs[k.Name] = e.Error()
	}
	return json.Marshal(struct {
		Values map[string]any    `json:"values"`
		Errors map[string]string `json:"errors,omitempty"`
		Calls  int               `json:"calls"`
		Usage  Usage             `json:"usage"`
	}{
		Values: r.ValuesByName(),
		Errors: errs,
		Calls:  len(r.records),
		Usage:  r.Usage(),
	})
}
