package chain

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is either Success or Failure.
type Outcome interface {
	isOutcome()
}

type Success struct {
	Completion string
	Usage      Usage
	Elapsed    time.Duration
}

type Failure struct {
	Err *StepError
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// CallRecord is one ledger entry: an attempted remote call (or a recorded non-call
// event such as a truncated fan-out) and how it ended.
type CallRecord struct {
	ID      uuid.UUID
	Label   Key
	Step    string
	Prompt  []Message
	Config  ChatConfig
	At      time.Time
	Outcome Outcome
}

func (r CallRecord) Succeeded() bool {
	_, ok := r.Outcome.(Success)
	return ok
}

// Completion returns the completion text of a successful record.
func (r CallRecord) Completion() (string, bool) {
	s, ok := r.Outcome.(Success)
	return s.Completion, ok
}

// Err returns the recorded failure, or nil for a successful record.
func (r CallRecord) Err() *StepError {
	if f, ok := r.Outcome.(Failure); ok {
		return f.Err
	}
	return nil
}

func (r CallRecord) Usage() Usage {
	if s, ok := r.Outcome.(Success); ok {
		return s.Usage
	}
	return Usage{}
}

// Ledger is the append-only, concurrency-safe trace of a run.
type Ledger struct {
	mu      sync.Mutex
	records []CallRecord
	onAdd   func(CallRecord)
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Append(r CallRecord) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	l.mu.Lock()
	l.records = append(l.records, r)
	hook := l.onAdd
	l.mu.Unlock()
	if hook != nil {
		hook(r)
	}
}

// Records returns a snapshot of the entries in append order.
func (l *Ledger) Records() []CallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func success(label Key, step string, prompt []Message, cfg ChatConfig, c Completion) CallRecord {
	return CallRecord{
		Label:   label,
		Step:    step,
		Prompt:  prompt,
		Config:  cfg,
		Outcome: Success{Completion: c.Text, Usage: c.Usage, Elapsed: c.Elapsed},
	}
}

func failure(prompt []Message, cfg ChatConfig, err *StepError) CallRecord {
	return CallRecord{
		Label:   err.Label,
		Step:    err.Step,
		Prompt:  prompt,
		Config:  cfg,
		At:      err.At,
		Outcome: Failure{Err: err},
	}
}
